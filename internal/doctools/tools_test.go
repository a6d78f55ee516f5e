package doctools

import (
	"encoding/json"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/redlinehq/redline/internal/document"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func testDoc() *document.Document {
	return &document.Document{
		ID: "doc-1",
		Lines: []document.Line{
			{LineNumber: 1, Text: "Purchase Agreement", PageNumber: 1, IsLocked: true},
			{LineNumber: 2, Text: "The buyer agrees to pay the purchase price.", PageNumber: 1},
			{LineNumber: 3, Text: "Delivery is due within thirty days.", PageNumber: 1},
			{LineNumber: 4, Text: "Payment terms: net thirty.", PageNumber: 2},
			{LineNumber: 5, Text: "Signatures", PageNumber: 2, IsLocked: true},
		},
		Metadata: document.Metadata{TotalLines: 5, TotalPages: 2},
	}
}

func TestCatalog(t *testing.T) {
	tools := Catalog()
	if len(tools) != 4 {
		t.Fatalf("expected 4 tools, got %d", len(tools))
	}
	for _, tool := range tools {
		if !KnownTool(tool.Function.Name) {
			t.Errorf("catalog tool %q not recognized by KnownTool", tool.Function.Name)
		}
		var schema map[string]any
		if err := json.Unmarshal(tool.Function.Parameters, &schema); err != nil {
			t.Errorf("tool %q has invalid parameter schema: %v", tool.Function.Name, err)
		}
	}
	if KnownTool("doc_delete_everything") {
		t.Error("KnownTool accepted a name outside the catalog")
	}
}

func TestAnalyze(t *testing.T) {
	engine := NewEngine(testLogger())

	t.Run("excludes locked lines", func(t *testing.T) {
		res := engine.Analyze("overview", testDoc())
		if !res.Success {
			t.Fatalf("analyze failed: %s", res.Error)
		}
		if res.LineCount != 3 {
			t.Errorf("expected 3 unlocked lines, got %d", res.LineCount)
		}
		if strings.Contains(res.Content, "Purchase Agreement") {
			t.Error("locked line leaked into analyze content")
		}
		if !strings.Contains(res.Content, "Line 2: The buyer agrees to pay the purchase price.") {
			t.Errorf("missing expected line in content:\n%s", res.Content)
		}
	})

	t.Run("empty document fails", func(t *testing.T) {
		res := engine.Analyze("overview", &document.Document{})
		if res.Success {
			t.Error("expected failure on empty document")
		}
		if res.Error == "" {
			t.Error("expected an error message")
		}
	})
}

func TestSearch(t *testing.T) {
	engine := NewEngine(testLogger())

	t.Run("case-insensitive substring", func(t *testing.T) {
		res := engine.Search("THIRTY", testDoc(), 0)
		if len(res.Matches) != 2 {
			t.Fatalf("expected 2 matches, got %d", len(res.Matches))
		}
		for _, m := range res.Matches {
			if m.Score != 0.5 {
				t.Errorf("partial match on line %d scored %v, want 0.5", m.LineNumber, m.Score)
			}
		}
	})

	t.Run("exact match ranks first", func(t *testing.T) {
		doc := testDoc()
		doc.Lines = append(doc.Lines, document.Line{LineNumber: 6, Text: "thirty", PageNumber: 2})
		res := engine.Search("thirty", doc, 0)
		if len(res.Matches) != 3 {
			t.Fatalf("expected 3 matches, got %d", len(res.Matches))
		}
		if res.Matches[0].LineNumber != 6 || res.Matches[0].Score != 1.0 {
			t.Errorf("expected exact match first with score 1.0, got line %d score %v",
				res.Matches[0].LineNumber, res.Matches[0].Score)
		}
	})

	t.Run("locked lines are searchable", func(t *testing.T) {
		res := engine.Search("Signatures", testDoc(), 0)
		if len(res.Matches) != 1 || res.Matches[0].LineNumber != 5 {
			t.Errorf("expected locked line 5 to match, got %+v", res.Matches)
		}
	})

	t.Run("empty query returns no matches", func(t *testing.T) {
		res := engine.Search("", testDoc(), 0)
		if !res.Success || len(res.Matches) != 0 {
			t.Errorf("expected empty success result, got %+v", res)
		}
	})

	t.Run("limit is capped", func(t *testing.T) {
		doc := &document.Document{ID: "big"}
		for i := 1; i <= 50; i++ {
			doc.Lines = append(doc.Lines, document.Line{LineNumber: i, Text: "needle here"})
		}
		res := engine.Search("needle", doc, 100)
		if len(res.Matches) != MaxSearchLimit {
			t.Errorf("expected %d matches, got %d", MaxSearchLimit, len(res.Matches))
		}
	})
}

func TestRead(t *testing.T) {
	engine := NewEngine(testLogger())

	t.Run("skips locked and missing", func(t *testing.T) {
		res := engine.Read([]int{1, 2, 99}, testDoc())
		if !res.Success {
			t.Fatalf("read failed: %s", res.Error)
		}
		if len(res.Lines) != 1 || res.Lines[0].LineNumber != 2 {
			t.Errorf("unexpected lines: %+v", res.Lines)
		}
		if !reflect.DeepEqual(res.SkippedLocked, []int{1}) {
			t.Errorf("skipped locked = %v, want [1]", res.SkippedLocked)
		}
		if !reflect.DeepEqual(res.SkippedMissing, []int{99}) {
			t.Errorf("skipped missing = %v, want [99]", res.SkippedMissing)
		}
	})

	t.Run("no line numbers fails", func(t *testing.T) {
		res := engine.Read(nil, testDoc())
		if res.Success {
			t.Error("expected failure on empty line list")
		}
	})
}

func TestEdit(t *testing.T) {
	engine := NewEngine(testLogger())

	t.Run("replace keeps numbering", func(t *testing.T) {
		doc := testDoc()
		res := engine.Edit(EditParams{
			Operation: OpReplace, Lines: []int{2}, NewText: "Revised clause.", HasNewText: true,
		}, doc)
		if !res.Success {
			t.Fatalf("replace failed: %s", res.Error)
		}
		l, _ := doc.Line(2)
		if l.Text != "Revised clause." {
			t.Errorf("line 2 = %q", l.Text)
		}
		if doc.Metadata.TotalLines != 5 {
			t.Errorf("total lines changed to %d", doc.Metadata.TotalLines)
		}
	})

	t.Run("locked target fails atomically", func(t *testing.T) {
		doc := testDoc()
		before := doc.Clone()
		res := engine.Edit(EditParams{
			Operation: OpReplace, Lines: []int{2, 5}, NewText: "x", HasNewText: true,
		}, doc)
		if res.Success {
			t.Fatal("expected failure editing a locked line")
		}
		if !strings.Contains(res.Error, "5") {
			t.Errorf("error does not name the locked line: %s", res.Error)
		}
		if !reflect.DeepEqual(doc.Lines, before.Lines) {
			t.Error("document was modified despite failed edit")
		}
	})

	t.Run("delete renumbers densely", func(t *testing.T) {
		doc := testDoc()
		res := engine.Edit(EditParams{Operation: OpDelete, Lines: []int{3}}, doc)
		if !res.Success {
			t.Fatalf("delete failed: %s", res.Error)
		}
		if len(doc.Lines) != 4 {
			t.Fatalf("expected 4 lines, got %d", len(doc.Lines))
		}
		for i, l := range doc.Lines {
			if l.LineNumber != i+1 {
				t.Errorf("line %d has number %d", i, l.LineNumber)
			}
		}
		l, _ := doc.Line(3)
		if l.Text != "Payment terms: net thirty." {
			t.Errorf("line 3 after delete = %q", l.Text)
		}
		if doc.Metadata.TotalLines != 4 {
			t.Errorf("metadata total lines = %d", doc.Metadata.TotalLines)
		}
	})

	t.Run("insert lands after target", func(t *testing.T) {
		doc := testDoc()
		res := engine.Edit(EditParams{
			Operation: OpInsert, Lines: []int{2}, NewText: "Inserted clause.", HasNewText: true,
		}, doc)
		if !res.Success {
			t.Fatalf("insert failed: %s", res.Error)
		}
		if len(doc.Lines) != 6 {
			t.Fatalf("expected 6 lines, got %d", len(doc.Lines))
		}
		l, _ := doc.Line(3)
		if l.Text != "Inserted clause." {
			t.Errorf("line 3 = %q, want inserted text", l.Text)
		}
		if l.PageNumber != 1 {
			t.Errorf("inserted line page = %d, want 1", l.PageNumber)
		}
		if !reflect.DeepEqual(res.ModifiedLines, []int{3}) {
			t.Errorf("modified lines = %v, want [3]", res.ModifiedLines)
		}
		// All numbers remain dense.
		for i, ln := range doc.Lines {
			if ln.LineNumber != i+1 {
				t.Errorf("line %d has number %d", i, ln.LineNumber)
			}
		}
	})

	t.Run("replace without newText fails", func(t *testing.T) {
		doc := testDoc()
		res := engine.Edit(EditParams{Operation: OpReplace, Lines: []int{2}}, doc)
		if res.Success {
			t.Error("expected failure without newText")
		}
	})

	t.Run("empty string is valid newText", func(t *testing.T) {
		doc := testDoc()
		res := engine.Edit(EditParams{
			Operation: OpReplace, Lines: []int{2}, NewText: "", HasNewText: true,
		}, doc)
		if !res.Success {
			t.Fatalf("replace with empty text failed: %s", res.Error)
		}
		l, _ := doc.Line(2)
		if l.Text != "" {
			t.Errorf("line 2 = %q, want empty", l.Text)
		}
	})

	t.Run("unknown operation fails", func(t *testing.T) {
		doc := testDoc()
		res := engine.Edit(EditParams{Operation: "truncate", Lines: []int{2}}, doc)
		if res.Success || !strings.Contains(res.Error, "unknown operation") {
			t.Errorf("unexpected result: %+v", res)
		}
	})
}

func TestExecute(t *testing.T) {
	engine := NewEngine(testLogger())

	t.Run("dispatches search", func(t *testing.T) {
		out := engine.Execute("doc_search", `{"query":"thirty","limit":1}`, testDoc())
		if !out.Success() {
			t.Fatalf("search dispatch failed: %s", out.Err)
		}
		if out.Search == nil || len(out.Search.Matches) != 1 {
			t.Errorf("unexpected search outcome: %+v", out.Search)
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(out.Payload), &payload); err != nil {
			t.Errorf("payload is not JSON: %v", err)
		}
	})

	t.Run("rejects unknown tool", func(t *testing.T) {
		out := engine.Execute("doc_rewrite", "{}", testDoc())
		if out.Success() {
			t.Error("unknown tool reported success")
		}
		if !strings.Contains(out.Payload, "unknown tool") {
			t.Errorf("payload does not explain the failure: %s", out.Payload)
		}
	})

	t.Run("rejects malformed arguments", func(t *testing.T) {
		out := engine.Execute("doc_edit", `{"operation":"replace"}`, testDoc())
		if out.Success() {
			t.Error("schema validation passed without required lines")
		}
	})

	t.Run("rejects non-JSON arguments", func(t *testing.T) {
		out := engine.Execute("doc_read", `not json`, testDoc())
		if out.Success() {
			t.Error("expected failure on invalid JSON")
		}
	})

	t.Run("empty arguments become empty object", func(t *testing.T) {
		out := engine.Execute("doc_analyze", "", testDoc())
		// reason is required by the schema, so this is a validation failure,
		// not a crash.
		if out.Err == "" {
			t.Error("expected validation error for missing reason")
		}
	})
}
