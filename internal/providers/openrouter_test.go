package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func openRouterTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *OpenRouterClient) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewOpenRouterClient(OpenRouterConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		RetryDelay: time.Millisecond,
	})
	return server, client
}

func toolCallResponse() map[string]any {
	return map[string]any{
		"id":    "gen-1",
		"model": "test/model",
		"choices": []map[string]any{
			{
				"message": map[string]any{
					"role": "assistant",
					"tool_calls": []map[string]any{
						{
							"id":   "call-1",
							"type": "function",
							"function": map[string]any{
								"name":      "doc_search",
								"arguments": `{"query":"investor"}`,
							},
						},
					},
				},
				"finish_reason": "tool_calls",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 5,
			"total_tokens":      15,
		},
	}
}

func TestOpenRouterChatWithTools(t *testing.T) {
	_, client := openRouterTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if _, ok := body["tools"]; !ok {
			t.Error("request missing tools")
		}

		json.NewEncoder(w).Encode(toolCallResponse())
	})

	tools := []Tool{{Type: "function", Function: ToolFunction{Name: "doc_search"}}}
	result, err := client.ChatWithTools(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "find the investor line"}},
	}, tools)
	if err != nil {
		t.Fatalf("ChatWithTools() error = %v", err)
	}

	if !result.Success {
		t.Error("expected success")
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(result.ToolCalls))
	}
	tc := result.ToolCalls[0]
	if tc.Function.Name != "doc_search" {
		t.Errorf("tool name = %q", tc.Function.Name)
	}
	if tc.ID != "call-1" {
		t.Errorf("tool call id = %q", tc.ID)
	}
	if result.TotalTokens != 15 {
		t.Errorf("totalTokens = %d, want 15", result.TotalTokens)
	}
}

func TestOpenRouterRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	_, client := openRouterTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(toolCallResponse())
	})

	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !result.Success {
		t.Error("expected success after retry")
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestOpenRouterNonRetryableError(t *testing.T) {
	var calls atomic.Int64
	_, client := openRouterTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad request"}}`))
	})

	_, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 attempt for non-retryable status, got %d", calls.Load())
	}
}
