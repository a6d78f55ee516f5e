package doctools

import (
	"fmt"
	"strings"

	"github.com/redlinehq/redline/internal/document"
	"github.com/redlinehq/redline/internal/providers"
)

// AnalyzeResult is the serializable output of doc_analyze.
type AnalyzeResult struct {
	Success   bool   `json:"success"`
	Content   string `json:"content,omitempty"`
	LineCount int    `json:"line_count"`
	Error     string `json:"error,omitempty"`
}

func analyzeTool() providers.Tool {
	return providers.Tool{
		Type: "function",
		Function: providers.ToolFunction{
			Name:        string(ToolAnalyze),
			Description: "Read the full document (all editable lines with their line numbers). Use this to get an overview before deciding where to edit, or when searches come up empty.",
			Parameters: mustMarshal(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"reason": map[string]any{
						"type":        "string",
						"description": "Why the full document is needed (for the audit log only)",
					},
				},
				"required": []string{"reason"},
			}),
		},
	}
}

// Analyze returns every unlocked line rendered as "Line N: <text>". The
// reason argument is audit-only and never changes the output.
func (e *Engine) Analyze(reason string, doc *document.Document) *AnalyzeResult {
	if doc.IsEmpty() {
		return &AnalyzeResult{
			Success: false,
			Error:   "document is empty or not available",
		}
	}

	e.logger.Debug("analyzing document", "reason", reason, "lines", len(doc.Lines))

	var parts []string
	for i := range doc.Lines {
		l := &doc.Lines[i]
		if l.IsLocked {
			continue
		}
		parts = append(parts, fmt.Sprintf("Line %d: %s", l.LineNumber, l.Text))
	}

	return &AnalyzeResult{
		Success:   true,
		Content:   strings.Join(parts, "\n"),
		LineCount: len(parts),
	}
}
