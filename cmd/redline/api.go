package main

import (
	"github.com/spf13/cobra"

	"github.com/redlinehq/redline/internal/api"
	"github.com/redlinehq/redline/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Redline server via HTTP.

These commands require a running server (redline serve).
Use --server to specify a custom server URL.

Examples:
  redline api health                       # Check server health
  redline api documents                    # List stored documents
  redline api chat <doc-id> "<message>"    # Run a chat turn`,
	// Cobra runs only the nearest PersistentPreRun in the command chain, so
	// the root's output-format hook is repeated here before the wait.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		api.SetOutputFormat(outputFormat)
		return api.NewClient(getServerURL()).WaitReady(cmd.Context())
	},
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Persistent so all subcommands inherit it.
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8585", "Server URL",
	)

	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.CreateDocumentEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ListDocumentsEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.GetDocumentEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.DeleteDocumentEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ChatEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.PreviewCitationsEndpoint{}).Command(getServerURL))

	rootCmd.AddCommand(apiCmd)
}
