package endpoints

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/redlinehq/redline/internal/config"
	"github.com/redlinehq/redline/internal/docstore"
	"github.com/redlinehq/redline/internal/document"
	"github.com/redlinehq/redline/internal/providers"
	"github.com/redlinehq/redline/internal/svcctx"
)

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// newTestServer wires all endpoints behind a mux with services injected,
// mirroring what server.New does without the lifecycle.
func newTestServer(t *testing.T, llm providers.LLMClient) (*httptest.Server, *docstore.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(nopWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
	registry := providers.NewRegistry()
	registry.SetLogger(logger)
	if llm != nil {
		registry.Register("test", llm)
	}
	store := docstore.New(logger)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("defaults:\n  model: configured-default-model\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgMgr, err := config.NewManager(cfgPath)
	if err != nil {
		t.Fatal(err)
	}

	services := &svcctx.Services{
		Registry:  registry,
		Store:     store,
		ConfigMgr: cfgMgr,
		Logger:    logger,
	}

	mux := http.NewServeMux()
	for _, ep := range All() {
		method, path, handler := ep.Route()
		mux.HandleFunc(method+" "+path, handler)
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), services)))
	}))
	t.Cleanup(ts.Close)
	return ts, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestHealthAndStatus(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	var health HealthResponse
	decode(t, resp, &health)
	if health.Status != "ok" {
		t.Errorf("health status = %q", health.Status)
	}

	resp, err = http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	var status StatusResponse
	decode(t, resp, &status)
	if status.Server != "running" {
		t.Errorf("status = %+v", status)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	create := CreateDocumentRequest{
		FileName: "notes.txt",
		Lines: []CreateDocumentLine{
			{Text: "first", PageNumber: 1},
			{Text: "second", PageNumber: 1},
			{Text: "third", PageNumber: 2, IsLocked: true},
		},
	}
	resp := postJSON(t, ts.URL+"/api/documents", create)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created CreateDocumentResponse
	decode(t, resp, &created)
	if created.TotalLines != 3 || created.TotalPages != 2 {
		t.Errorf("created = %+v", created)
	}

	resp, _ = http.Get(ts.URL + "/api/documents/" + created.ID)
	var doc document.Document
	decode(t, resp, &doc)
	if len(doc.Lines) != 3 || doc.Lines[0].LineNumber != 1 || !doc.Lines[2].IsLocked {
		t.Errorf("fetched doc = %+v", doc)
	}

	resp, _ = http.Get(ts.URL + "/api/documents")
	var list []docstore.Summary
	decode(t, resp, &list)
	if len(list) != 1 || list[0].FileName != "notes.txt" {
		t.Errorf("list = %+v", list)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/documents/"+created.ID, nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d", delResp.StatusCode)
	}

	resp, _ = http.Get(ts.URL + "/api/documents/" + created.ID)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete = %d", resp.StatusCode)
	}
}

func TestCreateDocumentValidation(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/documents", CreateDocumentRequest{FileName: "empty.txt"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty document accepted: %d", resp.StatusCode)
	}
}

func TestCreateDocumentExplicitLineNumbers(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	t.Run("out-of-order upload is sorted before renumbering", func(t *testing.T) {
		create := CreateDocumentRequest{
			FileName: "shuffled.txt",
			Lines: []CreateDocumentLine{
				{Text: "third", LineNumber: 30, PageNumber: 2},
				{Text: "first", LineNumber: 10, PageNumber: 1},
				{Text: "second", LineNumber: 20, PageNumber: 1},
			},
		}
		resp := postJSON(t, ts.URL+"/api/documents", create)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create status = %d", resp.StatusCode)
		}
		var created CreateDocumentResponse
		decode(t, resp, &created)

		resp, _ = http.Get(ts.URL + "/api/documents/" + created.ID)
		var doc document.Document
		decode(t, resp, &doc)
		want := []string{"first", "second", "third"}
		for i, text := range want {
			if doc.Lines[i].Text != text || doc.Lines[i].LineNumber != i+1 {
				t.Errorf("line %d = %+v, want %q", i+1, doc.Lines[i], text)
			}
		}
		if doc.Lines[2].PageNumber != 2 {
			t.Errorf("page of line 3 = %d", doc.Lines[2].PageNumber)
		}
	})

	t.Run("mixed explicit and implicit numbering is rejected", func(t *testing.T) {
		create := CreateDocumentRequest{
			FileName: "mixed.txt",
			Lines: []CreateDocumentLine{
				{Text: "a", LineNumber: 2},
				{Text: "b"},
			},
		}
		resp := postJSON(t, ts.URL+"/api/documents", create)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("mixed numbering accepted: %d", resp.StatusCode)
		}
	})
}

func TestChatEndpoint(t *testing.T) {
	llm := providers.NewScriptedClient(
		providers.ToolCallStep(
			providers.NewToolCall("c1", "doc_edit", `{"operation":"replace","lines":[1],"newText":"first, revised"}`),
		),
		providers.TextStep("Revised line 1."),
	)
	ts, store := newTestServer(t, llm)

	id, err := store.Put(&document.Document{
		Lines:    []document.Line{{LineNumber: 1, Text: "first", PageNumber: 1}},
		Metadata: document.Metadata{TotalLines: 1, TotalPages: 1, FileName: "a.txt"},
	})
	if err != nil {
		t.Fatal(err)
	}

	resp := postJSON(t, ts.URL+"/api/documents/"+id+"/chat", ChatRequest{
		Message:            "revise the first line",
		CustomInstructions: "Always reply in plain English without legal jargon.",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d", resp.StatusCode)
	}
	var chat ChatResponse
	decode(t, resp, &chat)
	if !chat.Edited || chat.Reply != "Revised line 1." {
		t.Errorf("chat = %+v", chat)
	}

	// The edit was committed to the store.
	doc, _ := store.Get(id)
	if doc.Lines[0].Text != "first, revised" {
		t.Errorf("stored line = %q", doc.Lines[0].Text)
	}
	// And the conversation history too.
	history, _ := store.History(id)
	if len(history) != 2 {
		t.Errorf("history = %+v", history)
	}

	// Custom instructions ride with the system prompt on the dispatch call.
	sent := llm.Requests[0].Messages
	if sent[0].Role != "system" || !strings.Contains(sent[0].Content, "without legal jargon") {
		t.Errorf("custom instructions missing from system message: %q", sent[0].Content)
	}
}

func TestChatModelSelection(t *testing.T) {
	seed := func(t *testing.T, store *docstore.Store) string {
		t.Helper()
		id, err := store.Put(&document.Document{
			Lines:    []document.Line{{LineNumber: 1, Text: "x", PageNumber: 1}},
			Metadata: document.Metadata{TotalLines: 1, TotalPages: 1},
		})
		if err != nil {
			t.Fatal(err)
		}
		return id
	}

	t.Run("falls back to the configured default model", func(t *testing.T) {
		llm := providers.NewScriptedClient(providers.TextStep("ok"))
		ts, store := newTestServer(t, llm)
		id := seed(t, store)

		resp := postJSON(t, ts.URL+"/api/documents/"+id+"/chat", ChatRequest{Message: "hi"})
		resp.Body.Close()
		if llm.Requests[0].Model != "configured-default-model" {
			t.Errorf("model = %q", llm.Requests[0].Model)
		}
	})

	t.Run("request model wins over the default", func(t *testing.T) {
		llm := providers.NewScriptedClient(providers.TextStep("ok"))
		ts, store := newTestServer(t, llm)
		id := seed(t, store)

		resp := postJSON(t, ts.URL+"/api/documents/"+id+"/chat", ChatRequest{Message: "hi", Model: "per-request-model"})
		resp.Body.Close()
		if llm.Requests[0].Model != "per-request-model" {
			t.Errorf("model = %q", llm.Requests[0].Model)
		}
	})
}

func TestChatEndpointErrors(t *testing.T) {
	t.Run("missing message", func(t *testing.T) {
		ts, store := newTestServer(t, providers.NewScriptedClient())
		id, _ := store.Put(&document.Document{
			Lines:    []document.Line{{LineNumber: 1, Text: "x", PageNumber: 1}},
			Metadata: document.Metadata{TotalLines: 1, TotalPages: 1},
		})
		resp := postJSON(t, ts.URL+"/api/documents/"+id+"/chat", ChatRequest{})
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})

	t.Run("unknown document", func(t *testing.T) {
		ts, _ := newTestServer(t, providers.NewScriptedClient())
		resp := postJSON(t, ts.URL+"/api/documents/nope/chat", ChatRequest{Message: "hi"})
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})

	t.Run("backend failure surfaces as 502", func(t *testing.T) {
		ts, store := newTestServer(t, providers.NewScriptedClient())
		id, _ := store.Put(&document.Document{
			Lines:    []document.Line{{LineNumber: 1, Text: "x", PageNumber: 1}},
			Metadata: document.Metadata{TotalLines: 1, TotalPages: 1},
		})
		// Exhausted scripted client fails the dispatch call.
		resp := postJSON(t, ts.URL+"/api/documents/"+id+"/chat", ChatRequest{Message: "hi"})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})
}

func TestPreviewCitations(t *testing.T) {
	ts, store := newTestServer(t, nil)

	id, _ := store.Put(&document.Document{
		Lines: []document.Line{
			{LineNumber: 1, Text: "alpha", PageNumber: 1},
			{LineNumber: 2, Text: "beta", PageNumber: 1},
		},
		Metadata: document.Metadata{TotalLines: 2, TotalPages: 1},
	})

	t.Run("parse only", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/citations/preview", PreviewCitationsRequest{Text: "see @l1-2 and @page1"})
		var out PreviewCitationsResponse
		decode(t, resp, &out)
		if len(out.Citations) != 2 {
			t.Fatalf("citations = %+v", out.Citations)
		}
		if out.Context != "" {
			t.Error("context rendered without a document")
		}
	})

	t.Run("resolve against document", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/citations/preview", PreviewCitationsRequest{
			Text: "see @line2", DocumentID: id,
		})
		var out PreviewCitationsResponse
		decode(t, resp, &out)
		if len(out.Citations) != 1 || !strings.Contains(out.Citations[0].ResolvedContent, "beta") {
			t.Errorf("citations = %+v", out.Citations)
		}
		if !strings.Contains(out.Context, "Referenced Content") {
			t.Errorf("context = %q", out.Context)
		}
	})

	t.Run("unknown document", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/citations/preview", PreviewCitationsRequest{
			Text: "@line1", DocumentID: "nope",
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})
}
