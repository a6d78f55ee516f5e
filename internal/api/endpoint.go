// Package api defines the endpoint abstraction shared by the HTTP server
// and the CLI: each endpoint is both a route and a cobra command that calls
// that route over HTTP.
package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Endpoint defines both an HTTP route and its corresponding CLI command,
// a single source of truth for API operations.
type Endpoint interface {
	// Route returns the HTTP method, path, and handler for this endpoint.
	Route() (method, path string, handler http.HandlerFunc)

	// RequiresReady reports whether this endpoint needs the server to be
	// fully initialized (provider registry loaded).
	RequiresReady() bool

	// Command returns a cobra command that calls this endpoint via HTTP.
	// getServerURL is called at runtime to get the server URL.
	Command(getServerURL func() string) *cobra.Command
}
