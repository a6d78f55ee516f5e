// Package turn drives one user-message-to-reply cycle: an opening model
// call, sequential tool execution, a self-healing fallback, at most one
// follow-up model call, and a closing summary.
package turn

import (
	"time"

	"github.com/google/uuid"

	"github.com/redlinehq/redline/internal/citation"
	"github.com/redlinehq/redline/internal/document"
	"github.com/redlinehq/redline/internal/providers"
)

// State names a phase of the turn state machine. States advance strictly
// forward; the only conditional is whether FollowUp runs at all.
type State string

const (
	StateDispatch      State = "dispatch"
	StateExecuteTools  State = "execute_tools"
	StateFallbackCheck State = "fallback_check"
	StateFollowUp      State = "follow_up"
	StateSummarize     State = "summarize"
	StateDone          State = "done"
)

// ActionType classifies an audit record.
type ActionType string

const (
	ActionAnalyze ActionType = "analyze"
	ActionSearch  ActionType = "search"
	ActionRead    ActionType = "read"
	ActionEdit    ActionType = "edit"
	ActionUnknown ActionType = "unknown_tool"
)

// Action is an immutable audit record of one tool invocation. Actions are
// created by the turn engine, never by the tool layer.
type Action struct {
	ID        string     `json:"id"`
	Type      ActionType `json:"type"`
	Success   bool       `json:"success"`
	Details   string     `json:"details"`
	Timestamp time.Time  `json:"timestamp"`
}

func newAction(t ActionType, success bool, details string) Action {
	return Action{
		ID:        uuid.New().String(),
		Type:      t,
		Success:   success,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// Request is one user turn against a document.
type Request struct {
	// Document is cloned before any mutation; the caller's copy is
	// untouched unless it adopts the returned one.
	Document *document.Document
	Message  string
	// History is the prior conversation (user/assistant pairs only, no
	// tool plumbing). Only a trailing window of it reaches the model.
	History []providers.Message
	Model   string
	// CustomInstructions are optional standing preferences from the caller,
	// delivered alongside the system prompt on every call that carries it.
	CustomInstructions string
}

// Response is the outcome of a completed turn.
type Response struct {
	Reply     string              `json:"reply"`
	Actions   []Action            `json:"actions"`
	Citations []citation.Citation `json:"citations,omitempty"`
	// Document is non-nil only when at least one edit succeeded; callers
	// adopt it as the new authoritative version.
	Document *document.Document `json:"document,omitempty"`
	// History is the input history plus this turn's user/assistant pair,
	// ready to pass into the next Request.
	History []providers.Message `json:"-"`
	State   State               `json:"state"`
}

// Edited reports whether this turn changed the document.
func (r *Response) Edited() bool {
	return r.Document != nil
}
