package turn

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/redlinehq/redline/internal/citation"
	"github.com/redlinehq/redline/internal/doctools"
	"github.com/redlinehq/redline/internal/document"
	"github.com/redlinehq/redline/internal/prompts"
	"github.com/redlinehq/redline/internal/providers"
)

// Engine runs the turn state machine. One Engine may serve many concurrent
// turns: it holds no per-turn state, and each Run works on its own clone of
// the request's document.
type Engine struct {
	client   providers.LLMClient
	tools    *doctools.Engine
	parser   *citation.Parser
	resolver *citation.Resolver
	logger   *slog.Logger
}

// NewEngine creates a turn engine backed by the given language-model client.
func NewEngine(client providers.LLMClient, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client:   client,
		tools:    doctools.NewEngine(logger),
		parser:   citation.NewParser(logger),
		resolver: citation.NewResolver(logger),
		logger:   logger,
	}
}

// runState is the per-turn bookkeeping threaded through the states.
type runState struct {
	doc        *document.Document
	transcript []providers.Message
	actions    []Action

	// Transition guards. needsFollowUp is set by any information-gathering
	// tool; hasDocEdit by any edit attempt, successful or not.
	needsFollowUp bool
	hasDocEdit    bool
	editSucceeded bool

	searches      int
	searchMatches int
	sawAnalyze    bool
}

// Run executes one complete turn. Tool failures are contained as failed
// Actions; an error return means the language-model backend itself failed,
// which is fatal for the turn.
func (e *Engine) Run(ctx context.Context, req *Request) (*Response, error) {
	turnID := uuid.New().String()
	log := e.logger.With("turn_id", turnID)

	citations := e.parser.Parse(req.Message)
	resolved := e.resolver.Resolve(citations, req.Document)
	citationBlock := citation.FormatAsContext(resolved)

	msgs, err := prompts.BuildContext(req.Document, req.History, req.Message, citationBlock, req.CustomInstructions)
	if err != nil {
		return nil, err
	}

	st := &runState{
		doc:        req.Document.Clone(),
		transcript: msgs,
	}

	// Dispatch: opening model call with the tool catalog enabled.
	log.Debug("dispatching turn", "state", StateDispatch, "citations", len(resolved))
	result, err := e.chatWithTools(ctx, st.transcript, req.Model, turnID)
	if err != nil {
		return nil, fmt.Errorf("model dispatch failed: %w", err)
	}

	// A response with no tool calls is already the final reply; there is
	// nothing to summarize.
	if len(result.ToolCalls) == 0 {
		reply := result.Content
		if strings.TrimSpace(reply) == "" {
			reply = prompts.GenericFallback
		}
		return e.finish(req, st, resolved, reply), nil
	}

	e.executeTools(log, st, result)
	e.fallbackCheck(log, st)

	if st.needsFollowUp && !st.hasDocEdit {
		if err := e.followUp(ctx, log, st, req, turnID); err != nil {
			return nil, err
		}
	}

	reply, err := e.summarize(ctx, log, st, req.Model, turnID)
	if err != nil {
		return nil, err
	}
	return e.finish(req, st, resolved, reply), nil
}

// executeTools runs every requested call strictly in issue order, since a
// later call may depend on mutations left by an earlier one.
func (e *Engine) executeTools(log *slog.Logger, st *runState, result *providers.ChatResult) {
	log.Debug("executing tools", "state", StateExecuteTools, "calls", len(result.ToolCalls))

	st.transcript = append(st.transcript, providers.Message{
		Role:      "assistant",
		Content:   result.Content,
		ToolCalls: result.ToolCalls,
	})

	for _, tc := range result.ToolCalls {
		outcome := e.tools.Execute(tc.Function.Name, tc.Function.Arguments, st.doc)
		st.record(outcome, tc.Function.Arguments)
		st.transcript = append(st.transcript, providers.Message{
			Role:       "tool",
			Content:    outcome.Payload,
			ToolCallID: tc.ID,
		})
	}
}

// fallbackCheck is the self-healing rule: a turn whose every search came
// back empty, with no analyze or edit, would otherwise end having done
// nothing. Force an analyze so the follow-up call has content to act on.
func (e *Engine) fallbackCheck(log *slog.Logger, st *runState) {
	if st.searches == 0 || st.searchMatches > 0 || st.sawAnalyze || st.hasDocEdit {
		return
	}

	log.Info("all searches empty, forcing analyze", "state", StateFallbackCheck, "searches", st.searches)

	res := e.tools.Analyze("automatic recovery after empty searches", st.doc)
	st.actions = append(st.actions, newAction(ActionAnalyze, res.Success,
		fmt.Sprintf("forced analyze after %d empty searches (%d lines)", st.searches, res.LineCount)))
	st.needsFollowUp = true

	content := res.Content
	if !res.Success {
		content = res.Error
	}
	st.transcript = append(st.transcript, providers.Message{
		Role:    "user",
		Content: prompts.FallbackRetryDirective + "\n\n" + content,
	})
}

// followUp issues the single additional model call allowed per turn. Only
// edit calls from its response are honored.
func (e *Engine) followUp(ctx context.Context, log *slog.Logger, st *runState, req *Request, turnID string) error {
	log.Debug("issuing follow-up call", "state", StateFollowUp)

	msgs := st.transcript
	if len(msgs) == 0 || msgs[0].Role != "system" {
		system, err := prompts.SystemPrompt(req.Document, req.CustomInstructions)
		if err != nil {
			return err
		}
		msgs = append([]providers.Message{{Role: "system", Content: system}}, msgs...)
	}
	msgs = append(msgs, providers.Message{
		Role:    "user",
		Content: prompts.FollowUpDirective + "\n\nOriginal request: " + req.Message,
	})
	st.transcript = msgs

	result, err := e.chatWithTools(ctx, st.transcript, req.Model, turnID)
	if err != nil {
		return fmt.Errorf("follow-up call failed: %w", err)
	}

	if len(result.ToolCalls) == 0 {
		return nil
	}

	st.transcript = append(st.transcript, providers.Message{
		Role:      "assistant",
		Content:   result.Content,
		ToolCalls: result.ToolCalls,
	})
	for _, tc := range result.ToolCalls {
		if doctools.ToolName(tc.Function.Name) != doctools.ToolEdit {
			log.Warn("non-edit tool call in follow-up, skipping",
				"tool", tc.Function.Name)
			st.transcript = append(st.transcript, providers.Message{
				Role:       "tool",
				Content:    `{"success":false,"error":"only doc_edit is accepted at this point"}`,
				ToolCallID: tc.ID,
			})
			continue
		}
		outcome := e.tools.Execute(tc.Function.Name, tc.Function.Arguments, st.doc)
		st.record(outcome, tc.Function.Arguments)
		st.transcript = append(st.transcript, providers.Message{
			Role:       "tool",
			Content:    outcome.Payload,
			ToolCallID: tc.ID,
		})
	}
	return nil
}

// summarize makes the closing model call with tools disabled and returns
// the user-facing reply.
func (e *Engine) summarize(ctx context.Context, log *slog.Logger, st *runState, model, turnID string) (string, error) {
	log.Debug("summarizing turn", "state", StateSummarize, "actions", len(st.actions))

	msgs := append(st.transcript, providers.Message{
		Role:    "user",
		Content: prompts.SummaryRequest(summaryLines(st.actions)),
	})

	result, err := e.client.Chat(ctx, &providers.ChatRequest{
		Messages:  msgs,
		Model:     model,
		RequestID: turnID,
	})
	if err != nil {
		return "", fmt.Errorf("summary call failed: %w", err)
	}
	if !result.Success {
		return "", fmt.Errorf("summary call failed: %s", result.ErrorMessage)
	}

	reply := strings.TrimSpace(result.Content)
	if reply == "" {
		reply = prompts.GenericFallback
	}
	return reply, nil
}

// finish assembles the Done response and the updated history pair.
func (e *Engine) finish(req *Request, st *runState, resolved []citation.Citation, reply string) *Response {
	resp := &Response{
		Reply:     reply,
		Actions:   st.actions,
		Citations: resolved,
		State:     StateDone,
	}
	if st.editSucceeded {
		resp.Document = st.doc
	}

	resp.History = append(resp.History, req.History...)
	resp.History = append(resp.History,
		providers.Message{Role: "user", Content: req.Message},
		providers.Message{Role: "assistant", Content: reply},
	)
	return resp
}

func (e *Engine) chatWithTools(ctx context.Context, msgs []providers.Message, model, turnID string) (*providers.ChatResult, error) {
	result, err := e.client.ChatWithTools(ctx, &providers.ChatRequest{
		Messages:  msgs,
		Model:     model,
		RequestID: turnID,
	}, doctools.Catalog())
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("backend error (%s): %s", result.ErrorType, result.ErrorMessage)
	}
	return result, nil
}

// record appends the audit Action for one tool outcome and updates the
// transition guards.
func (st *runState) record(outcome *doctools.Outcome, rawArgs string) {
	switch {
	case outcome.Err != "":
		if doctools.KnownTool(string(outcome.Name)) {
			st.actions = append(st.actions, newAction(actionType(outcome.Name), false, outcome.Err))
		} else {
			st.actions = append(st.actions, newAction(ActionUnknown, false, outcome.Err))
		}
	case outcome.Analyze != nil:
		st.sawAnalyze = true
		st.needsFollowUp = true
		detail := fmt.Sprintf("analyzed document (%d lines)", outcome.Analyze.LineCount)
		if !outcome.Analyze.Success {
			detail = outcome.Analyze.Error
		}
		st.actions = append(st.actions, newAction(ActionAnalyze, outcome.Analyze.Success, detail))
	case outcome.Search != nil:
		st.searches++
		st.searchMatches += len(outcome.Search.Matches)
		st.needsFollowUp = true
		st.actions = append(st.actions, newAction(ActionSearch, outcome.Search.Success,
			fmt.Sprintf("searched for %q (%d matches)", outcome.Search.Query, len(outcome.Search.Matches))))
	case outcome.Read != nil:
		st.needsFollowUp = true
		detail := fmt.Sprintf("read %d lines (%d locked, %d missing skipped)",
			len(outcome.Read.Lines), len(outcome.Read.SkippedLocked), len(outcome.Read.SkippedMissing))
		if !outcome.Read.Success {
			detail = outcome.Read.Error
		}
		st.actions = append(st.actions, newAction(ActionRead, outcome.Read.Success, detail))
	case outcome.Edit != nil:
		st.hasDocEdit = true
		if outcome.Edit.Success {
			st.editSucceeded = true
			// The raw arguments carry the literal new text for the audit
			// trail; the summary shown to the model omits it.
			st.actions = append(st.actions, newAction(ActionEdit, true,
				fmt.Sprintf("%s modified lines %s; args: %s",
					outcome.Edit.Operation, joinInts(outcome.Edit.ModifiedLines), rawArgs)))
		} else {
			st.actions = append(st.actions, newAction(ActionEdit, false,
				fmt.Sprintf("%s failed: %s", outcome.Edit.Operation, outcome.Edit.Error)))
		}
	}
}

func actionType(name doctools.ToolName) ActionType {
	switch name {
	case doctools.ToolAnalyze:
		return ActionAnalyze
	case doctools.ToolSearch:
		return ActionSearch
	case doctools.ToolRead:
		return ActionRead
	case doctools.ToolEdit:
		return ActionEdit
	}
	return ActionUnknown
}

// summaryLines renders the action list for the closing summary request:
// edits by line number (never restating the new text), failed edits with
// reasons, and searches with result counts.
func summaryLines(actions []Action) []string {
	var lines []string
	for _, a := range actions {
		switch a.Type {
		case ActionEdit:
			if a.Success {
				detail := a.Details
				if i := strings.Index(detail, "; args:"); i >= 0 {
					detail = detail[:i]
				}
				lines = append(lines, detail)
			} else {
				lines = append(lines, "edit failed: "+a.Details)
			}
		case ActionSearch:
			lines = append(lines, a.Details)
		case ActionAnalyze, ActionRead:
			lines = append(lines, a.Details)
		}
	}
	return lines
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
