package doctools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/redlinehq/redline/internal/document"
	"github.com/redlinehq/redline/internal/providers"
)

// Operation is the kind of edit to perform.
type Operation string

const (
	OpReplace Operation = "replace"
	OpInsert  Operation = "insert"
	OpDelete  Operation = "delete"
)

// EditParams are the decoded arguments of a doc_edit call.
type EditParams struct {
	Operation Operation
	Lines     []int
	NewText   string
	// HasNewText distinguishes an explicit empty string (replace a line
	// with blank text) from an omitted field.
	HasNewText bool
}

// EditResult is the serializable output of doc_edit.
type EditResult struct {
	Success       bool   `json:"success"`
	Operation     string `json:"operation"`
	ModifiedLines []int  `json:"modified_lines,omitempty"`
	Error         string `json:"error,omitempty"`
}

func editTool() providers.Tool {
	return providers.Tool{
		Type: "function",
		Function: providers.ToolFunction{
			Name:        string(ToolEdit),
			Description: "Modify the document. replace: set new text on each listed line. insert: add a new line after each listed line. delete: remove the listed lines. Locked lines cannot be edited; line numbers are reassigned after insert and delete.",
			Parameters: mustMarshal(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"operation": map[string]any{
						"type":        "string",
						"enum":        []string{string(OpReplace), string(OpInsert), string(OpDelete)},
						"description": "Edit operation to perform",
					},
					"lines": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "integer"},
						"description": "Target line numbers",
					},
					"newText": map[string]any{
						"type":        "string",
						"description": "New line text (required for replace and insert)",
					},
				},
				"required": []string{"operation", "lines"},
			}),
		},
	}
}

// Edit applies an operation to the document in place. Validation runs
// before any mutation: if any target line is locked, or required arguments
// are absent, the document is untouched and the result names the offending
// lines. Targets not present in the document are skipped. Edits are atomic
// per call, all targets or none.
func (e *Engine) Edit(params EditParams, doc *document.Document) *EditResult {
	result := &EditResult{Operation: string(params.Operation)}

	if doc.IsEmpty() {
		result.Error = "document is empty or not available"
		return result
	}
	if len(params.Lines) == 0 {
		result.Error = "no target lines provided"
		return result
	}

	switch params.Operation {
	case OpReplace, OpInsert:
		if !params.HasNewText {
			result.Error = fmt.Sprintf("%s requires newText", params.Operation)
			return result
		}
	case OpDelete:
	default:
		result.Error = fmt.Sprintf("unknown operation: %s", params.Operation)
		return result
	}

	// Missing target lines are skipped, not errors. Locked targets fail the
	// whole call before anything is touched.
	var locked []int
	for _, n := range params.Lines {
		l, ok := doc.Line(n)
		if !ok {
			continue
		}
		if l.IsLocked {
			locked = append(locked, n)
		}
	}
	if len(locked) > 0 {
		result.Error = fmt.Sprintf("cannot edit locked lines: %s", joinInts(locked))
		return result
	}

	switch params.Operation {
	case OpReplace:
		e.replaceLines(params, doc, result)
	case OpInsert:
		e.insertLines(params, doc, result)
	case OpDelete:
		e.deleteLines(params, doc, result)
	}

	e.logger.Info("document edited",
		"operation", params.Operation,
		"modified", result.ModifiedLines,
	)
	return result
}

// replaceLines sets new text on each target present in the document. Line
// numbers do not change.
func (e *Engine) replaceLines(params EditParams, doc *document.Document, result *EditResult) {
	for _, n := range params.Lines {
		l, ok := doc.Line(n)
		if !ok {
			continue
		}
		l.Text = params.NewText
		result.ModifiedLines = append(result.ModifiedLines, n)
	}
	result.Success = true
}

// insertLines adds a new line after each target. Insertion positions are
// computed with fractional sort keys (target + 0.5) so multiple inserts in
// one call land correctly, then the document is renumbered densely. The
// fractional keys never leave this function.
func (e *Engine) insertLines(params EditParams, doc *document.Document, result *EditResult) {
	type keyed struct {
		key  float64
		line document.Line
	}

	entries := make([]keyed, 0, len(doc.Lines)+len(params.Lines))
	for _, l := range doc.Lines {
		entries = append(entries, keyed{key: float64(l.LineNumber), line: l})
	}
	for _, n := range params.Lines {
		after, ok := doc.Line(n)
		if !ok {
			continue
		}
		entries = append(entries, keyed{
			key: float64(n) + 0.5,
			line: document.Line{
				Text: params.NewText,
				// New lines inherit the page of the line they follow.
				PageNumber: after.PageNumber,
			},
		})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	doc.Lines = doc.Lines[:0]
	for _, en := range entries {
		doc.Lines = append(doc.Lines, en.line)
	}
	doc.Renumber()

	// Report the final numbers of the inserted lines: after renumbering,
	// each inserted line sits where its fractional key landed.
	for i, en := range entries {
		if en.key != float64(int(en.key)) {
			result.ModifiedLines = append(result.ModifiedLines, i+1)
		}
	}
	result.Success = true
}

// deleteLines removes the targets and renumbers the remainder densely.
func (e *Engine) deleteLines(params EditParams, doc *document.Document, result *EditResult) {
	drop := make(map[int]bool, len(params.Lines))
	for _, n := range params.Lines {
		drop[n] = true
	}

	kept := doc.Lines[:0]
	for _, l := range doc.Lines {
		if drop[l.LineNumber] {
			result.ModifiedLines = append(result.ModifiedLines, l.LineNumber)
			continue
		}
		kept = append(kept, l)
	}
	doc.Lines = kept
	doc.Renumber()

	result.Success = true
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}
