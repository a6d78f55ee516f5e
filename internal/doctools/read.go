package doctools

import (
	"github.com/redlinehq/redline/internal/document"
	"github.com/redlinehq/redline/internal/providers"
)

// ReadLine is one returned line.
type ReadLine struct {
	LineNumber int    `json:"line_number"`
	Text       string `json:"text"`
}

// ReadResult is the serializable output of doc_read.
type ReadResult struct {
	Success bool       `json:"success"`
	Lines   []ReadLine `json:"lines"`
	// Skipped line numbers are reported, not errored: locked lines are
	// invisible to the model and missing lines are soft data.
	SkippedLocked  []int  `json:"skipped_locked,omitempty"`
	SkippedMissing []int  `json:"skipped_missing,omitempty"`
	Error          string `json:"error,omitempty"`
}

func readTool() providers.Tool {
	return providers.Tool{
		Type: "function",
		Function: providers.ToolFunction{
			Name:        string(ToolRead),
			Description: "Read specific lines by line number. Locked lines and unknown line numbers are skipped.",
			Parameters: mustMarshal(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"lines": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "integer"},
						"description": "Line numbers to read",
					},
				},
				"required": []string{"lines"},
			}),
		},
	}
}

// Read returns the requested lines that exist and are unlocked. The overall
// result fails only when no line numbers were provided at all.
func (e *Engine) Read(lines []int, doc *document.Document) *ReadResult {
	if len(lines) == 0 {
		return &ReadResult{
			Success: false,
			Error:   "no line numbers provided",
		}
	}

	result := &ReadResult{Success: true, Lines: []ReadLine{}}
	for _, n := range lines {
		l, ok := doc.Line(n)
		if !ok {
			result.SkippedMissing = append(result.SkippedMissing, n)
			continue
		}
		if l.IsLocked {
			result.SkippedLocked = append(result.SkippedLocked, n)
			continue
		}
		result.Lines = append(result.Lines, ReadLine{LineNumber: l.LineNumber, Text: l.Text})
	}

	if len(result.SkippedLocked) > 0 || len(result.SkippedMissing) > 0 {
		e.logger.Debug("read skipped lines",
			"locked", result.SkippedLocked,
			"missing", result.SkippedMissing,
		)
	}
	return result
}
