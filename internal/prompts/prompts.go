// Package prompts holds the embedded prompt templates and assembles the
// message context sent to the language model on each turn.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/redlinehq/redline/internal/document"
	"github.com/redlinehq/redline/internal/providers"
)

//go:embed system.tmpl
var systemPrompt string

// HistoryWindow is how many trailing conversation messages are replayed to
// the model. Older history is dropped, not summarized.
const HistoryWindow = 5

// FollowUpDirective is appended after tool results when the model gathered
// information but has not edited yet. Only an edit is honored in the
// follow-up round.
const FollowUpDirective = "Based on what the tools returned, make the requested edit now with doc_edit, or explain why no edit is possible. Do not search or read again."

// FallbackRetryDirective is injected when every search in a round came back
// empty and nothing was analyzed or edited.
const FallbackRetryDirective = "Your searches found nothing. The full document content follows; use it to fulfil the request."

// GenericFallback is returned to the user when the model produced neither
// text nor tool calls.
const GenericFallback = "I wasn't able to complete that request. Could you rephrase it or point me at the lines you want changed?"

var systemTemplate = template.Must(template.New("system").Parse(systemPrompt))

// systemVars is the data rendered into the system template.
type systemVars struct {
	FileName   string
	TotalLines int
	TotalPages int
}

// SystemPrompt renders the system prompt for a document. A nil or empty
// document still yields a usable prompt with zero counts. Custom
// instructions are the caller's standing preferences for the turn (tone,
// formatting, constraints); when present they are appended to the prompt so
// they carry the same weight on every model call that re-supplies it.
func SystemPrompt(doc *document.Document, customInstructions string) (string, error) {
	vars := systemVars{FileName: "untitled"}
	if doc != nil {
		if doc.Metadata.FileName != "" {
			vars.FileName = doc.Metadata.FileName
		}
		vars.TotalLines = doc.Metadata.TotalLines
		vars.TotalPages = doc.Metadata.TotalPages
	}

	var sb strings.Builder
	if err := systemTemplate.Execute(&sb, vars); err != nil {
		return "", fmt.Errorf("rendering system prompt: %w", err)
	}
	if ci := strings.TrimSpace(customInstructions); ci != "" {
		sb.WriteString("\n\nStanding instructions from the user:\n")
		sb.WriteString(ci)
	}
	return sb.String(), nil
}

// BuildContext assembles the message list for the opening model call of a
// turn. The system prompt is sent only when there is no prior history; on
// later turns the model already carries it. History is truncated to the
// trailing HistoryWindow messages. Resolved citation content, when present,
// is appended to the user's message rather than sent as a separate message
// so the model sees the request and its referenced lines together.
func BuildContext(doc *document.Document, history []providers.Message, userMessage, citationContext, customInstructions string) ([]providers.Message, error) {
	var msgs []providers.Message

	if len(history) == 0 {
		system, err := SystemPrompt(doc, customInstructions)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, providers.Message{Role: "system", Content: system})
	}

	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	msgs = append(msgs, history...)

	content := userMessage
	if citationContext != "" {
		content = userMessage + "\n\n" + citationContext
	}
	msgs = append(msgs, providers.Message{Role: "user", Content: content})

	return msgs, nil
}

// SummaryRequest builds the user-role instruction for the closing summary
// call, grounded in what actually happened during the turn.
func SummaryRequest(actionLines []string) string {
	var sb strings.Builder
	sb.WriteString("Summarize for the user what you just did. Actions taken:\n")
	if len(actionLines) == 0 {
		sb.WriteString("- none\n")
	}
	for _, line := range actionLines {
		sb.WriteString("- ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("Reply in one or two sentences. Mention line numbers for any edits. Do not call tools.")
	return sb.String()
}
