// Package doctools implements the document operations exposed to the
// language model: analyze, search, read, and edit. The tool names form a
// closed set; anything else is rejected as unknown rather than dispatched
// dynamically.
package doctools

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redlinehq/redline/internal/document"
	"github.com/redlinehq/redline/internal/providers"
)

// ToolName identifies one of the four document tools.
type ToolName string

const (
	ToolAnalyze ToolName = "doc_analyze"
	ToolSearch  ToolName = "doc_search"
	ToolRead    ToolName = "doc_read"
	ToolEdit    ToolName = "doc_edit"
)

// KnownTool reports whether name is in the tool catalog.
func KnownTool(name string) bool {
	switch ToolName(name) {
	case ToolAnalyze, ToolSearch, ToolRead, ToolEdit:
		return true
	}
	return false
}

// Catalog returns the tool definitions advertised to the language model.
func Catalog() []providers.Tool {
	return []providers.Tool{
		analyzeTool(),
		searchTool(),
		readTool(),
		editTool(),
	}
}

// Engine executes document tools against a live document. Tool failures are
// data (failed outcomes), never errors: a bad tool call must not abort the
// turn that issued it.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a tool execution engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Outcome is the result of dispatching one tool call. Payload is the JSON
// string handed back to the model; exactly one of the typed result fields is
// set for known tools.
type Outcome struct {
	Name    ToolName
	Payload string

	Analyze *AnalyzeResult
	Search  *SearchResult
	Read    *ReadResult
	Edit    *EditResult

	// Err is set for unknown tools and argument validation failures.
	Err string
}

// Success reports whether the underlying tool succeeded.
func (o *Outcome) Success() bool {
	switch {
	case o.Err != "":
		return false
	case o.Analyze != nil:
		return o.Analyze.Success
	case o.Search != nil:
		return o.Search.Success
	case o.Read != nil:
		return o.Read.Success
	case o.Edit != nil:
		return o.Edit.Success
	}
	return false
}

// Execute dispatches a tool call by name with raw JSON arguments. The
// returned outcome always carries a model-consumable payload, including for
// unknown tools and malformed arguments.
func (e *Engine) Execute(name string, rawArgs string, doc *document.Document) *Outcome {
	out := &Outcome{Name: ToolName(name)}

	if !KnownTool(name) {
		out.Err = fmt.Sprintf("unknown tool: %s", name)
		out.Payload = jsonError(out.Err)
		e.logger.Warn("rejected unknown tool", "name", name)
		return out
	}

	args, err := decodeArgs(ToolName(name), rawArgs)
	if err != nil {
		out.Err = fmt.Sprintf("invalid arguments for %s: %v", name, err)
		out.Payload = jsonError(out.Err)
		e.logger.Warn("rejected tool arguments", "name", name, "error", err)
		return out
	}

	switch ToolName(name) {
	case ToolAnalyze:
		reason, _ := args["reason"].(string)
		out.Analyze = e.Analyze(reason, doc)
		out.Payload = mustMarshalString(out.Analyze)
	case ToolSearch:
		query, _ := args["query"].(string)
		limit := DefaultSearchLimit
		if f, ok := args["limit"].(float64); ok {
			limit = int(f)
		}
		out.Search = e.Search(query, doc, limit)
		out.Payload = mustMarshalString(out.Search)
	case ToolRead:
		var lines []int
		if raw, ok := args["lines"].([]any); ok {
			for _, v := range raw {
				if f, ok := v.(float64); ok {
					lines = append(lines, int(f))
				}
			}
		}
		out.Read = e.Read(lines, doc)
		out.Payload = mustMarshalString(out.Read)
	case ToolEdit:
		params := EditParams{}
		op, _ := args["operation"].(string)
		params.Operation = Operation(op)
		if raw, ok := args["lines"].([]any); ok {
			for _, v := range raw {
				if f, ok := v.(float64); ok {
					params.Lines = append(params.Lines, int(f))
				}
			}
		}
		if s, ok := args["newText"].(string); ok {
			params.NewText = s
			params.HasNewText = true
		}
		out.Edit = e.Edit(params, doc)
		out.Payload = mustMarshalString(out.Edit)
	}

	return out
}

// Helper functions for JSON payloads.

func jsonError(msg string) string {
	b, _ := json.Marshal(map[string]any{"success": false, "error": msg})
	return string(b)
}

func mustMarshalString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// mustMarshal marshals a value to JSON, panicking on error.
// Used for static tool schemas - failure indicates a programming bug.
func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
