package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string

	// State
	requestCount atomic.Int64
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      time.Millisecond,
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	return c.doRequest(ctx, req, nil)
}

// ChatWithTools sends a mock chat request with tools.
func (c *MockClient) ChatWithTools(ctx context.Context, req *ChatRequest, tools []Tool) (*ChatResult, error) {
	return c.doRequest(ctx, req, tools)
}

func (c *MockClient) doRequest(ctx context.Context, req *ChatRequest, tools []Tool) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
	}

	if c.ShouldFail {
		result.Success = false
		result.ErrorType = "mock_failure"
		result.ErrorMessage = "mock client configured to fail"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("mock client configured to fail")
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		result.Success = false
		result.ErrorType = "mock_failure"
		result.ErrorMessage = fmt.Sprintf("mock client failed after %d requests", c.FailAfter)
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("mock client failed after %d requests", c.FailAfter)
	}

	select {
	case <-time.After(c.Latency):
	case <-ctx.Done():
		result.Success = false
		result.ErrorType = "context_cancelled"
		result.ErrorMessage = ctx.Err().Error()
		result.ExecutionTime = time.Since(start)
		return result, ctx.Err()
	}

	result.Success = true
	result.Content = c.ResponseText
	result.ExecutionTime = time.Since(start)

	// Rough token estimate so metrics-adjacent code has non-zero numbers.
	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4
	}
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(c.ResponseText) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens

	// Echo the first tool back if tools were provided.
	if len(tools) > 0 {
		result.ToolCalls = []ToolCall{
			NewToolCall("mock-tool-call-1", tools[0].Function.Name, `{}`),
		}
	}

	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Reset resets the request counter.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)

// ScriptedStep is one queued response (or failure) for a ScriptedClient.
type ScriptedStep struct {
	Result *ChatResult
	Err    error
}

// ScriptedClient is an LLMClient that plays back a fixed sequence of
// responses. Multi-round orchestration tests script each model round and
// then assert on the requests the engine actually sent.
type ScriptedClient struct {
	mu    sync.Mutex
	steps []ScriptedStep

	// Requests records every request received, in order. ToolsPerCall
	// records the tool catalog supplied alongside each request (nil when
	// tools were disabled for that call).
	Requests     []*ChatRequest
	ToolsPerCall [][]Tool
}

// NewScriptedClient creates a client that returns the given steps in order.
func NewScriptedClient(steps ...ScriptedStep) *ScriptedClient {
	return &ScriptedClient{steps: steps}
}

// TextStep builds a step returning plain text with no tool calls.
func TextStep(text string) ScriptedStep {
	return ScriptedStep{Result: &ChatResult{Success: true, Content: text, Provider: "scripted"}}
}

// ToolCallStep builds a step returning the given tool calls.
func ToolCallStep(calls ...ToolCall) ScriptedStep {
	return ScriptedStep{Result: &ChatResult{Success: true, ToolCalls: calls, Provider: "scripted"}}
}

// ErrorStep builds a step that fails with err.
func ErrorStep(err error) ScriptedStep {
	return ScriptedStep{Err: err}
}

// Name returns the client identifier.
func (c *ScriptedClient) Name() string {
	return "scripted"
}

// Chat pops the next scripted step.
func (c *ScriptedClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	return c.next(req, nil)
}

// ChatWithTools pops the next scripted step.
func (c *ScriptedClient) ChatWithTools(ctx context.Context, req *ChatRequest, tools []Tool) (*ChatResult, error) {
	return c.next(req, tools)
}

func (c *ScriptedClient) next(req *ChatRequest, tools []Tool) (*ChatResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Requests = append(c.Requests, req)
	c.ToolsPerCall = append(c.ToolsPerCall, tools)

	if len(c.steps) == 0 {
		return nil, fmt.Errorf("scripted client exhausted after %d calls", len(c.Requests))
	}
	step := c.steps[0]
	c.steps = c.steps[1:]

	if step.Err != nil {
		return nil, step.Err
	}
	return step.Result, nil
}

// CallCount returns how many requests the client has received.
func (c *ScriptedClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Requests)
}

// Verify interface
var _ LLMClient = (*ScriptedClient)(nil)
