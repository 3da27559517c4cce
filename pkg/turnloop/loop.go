package turnloop

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/corbat-tech/coco/pkg/confirm"
	"github.com/corbat-tech/coco/pkg/conversation"
	"github.com/corbat-tech/coco/pkg/engine"
	"github.com/corbat-tech/coco/pkg/events"
	"github.com/corbat-tech/coco/pkg/interrupt"
	"github.com/corbat-tech/coco/pkg/queue"
	"github.com/corbat-tech/coco/pkg/safety"
	"github.com/corbat-tech/coco/pkg/session"
	"github.com/corbat-tech/coco/pkg/tools"
)

const DefaultMaxIterations = 25

// Loop drives one agent turn: inference, confirmation-gated tool execution,
// and conversation bookkeeping, repeated until the model stops requesting
// tools or the iteration bound is hit.
type Loop struct {
	eng      engine.Engine
	registry tools.Registry
	executor tools.Executor
	gate     *confirm.Gate
	queue    *queue.MessageQueue
	policy   *safety.Policy

	riskMode      bool
	maxIterations int
}

type Option func(*Loop)

// WithExecutor overrides the default tool executor.
func WithExecutor(e tools.Executor) Option {
	return func(l *Loop) { l.executor = e }
}

// WithQueue attaches the captured-input queue. When set, the queue is
// drained and classified at the top of every iteration.
func WithQueue(q *queue.MessageQueue) Option {
	return func(l *Loop) { l.queue = q }
}

// WithPolicy attaches the destructive-command policy. Blocked commands are
// refused before the confirmation gate ever sees them.
func WithPolicy(p *safety.Policy) Option {
	return func(l *Loop) { l.policy = p }
}

// WithRiskMode auto-approves non-blocked commands without prompting. The
// policy deny list still applies.
func WithRiskMode(enabled bool) Option {
	return func(l *Loop) { l.riskMode = enabled }
}

func WithMaxIterations(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxIterations = n
		}
	}
}

func NewLoop(eng engine.Engine, registry tools.Registry, gate *confirm.Gate, opts ...Option) *Loop {
	l := &Loop{
		eng:           eng,
		registry:      registry,
		gate:          gate,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.executor == nil {
		l.executor = tools.NewDefaultExecutor()
	}
	return l
}

// RunTurn executes one full agent turn for userMessage against the session's
// conversation. The returned TurnResult is non-nil even on error and carries
// whatever accumulated before the failure.
func (l *Loop) RunTurn(ctx context.Context, sess *session.Session, userMessage string) (*TurnResult, error) {
	if l.eng == nil {
		return nil, errors.New("no engine configured")
	}
	if sess == nil {
		return nil, errors.New("nil session")
	}

	meta := events.EventMetadata{
		ID:             uuid.New(),
		ConversationID: sess.Manager.ConversationID(),
		TurnID:         uuid.NewString(),
	}
	res := &TurnResult{}
	// Turn-scoped: an allow-all answer never outlives this turn.
	state := &confirm.State{}

	sess.Manager.AppendMessages(conversation.NewUserMessage(userMessage))
	events.PublishEventToContext(ctx, events.NewStartEvent(meta))

	log.Debug().
		Str("turn_id", meta.TurnID).
		Int("max_iterations", l.maxIterations).
		Msg("turnloop: starting turn")

	for iteration := 0; iteration < l.maxIterations; iteration++ {
		select {
		case <-ctx.Done():
			log.Info().Str("turn_id", meta.TurnID).Int("iteration", iteration+1).Msg("turnloop: turn cancelled")
			return l.abort(res, AbortReasonUserCancel), nil
		default:
		}

		if l.drainInterruptions(ctx, sess, meta, res) {
			return res, nil
		}

		events.PublishEventToContext(ctx, events.NewThinkingStartEvent(meta))
		resp, err := l.eng.RunInference(ctx, sess.Manager.GetConversation(), l.definitions())
		events.PublishEventToContext(ctx, events.NewThinkingEndEvent(meta))
		if err != nil {
			events.PublishEventToContext(ctx, events.NewErrorEvent(meta, err))
			return res, errors.Wrap(err, "run inference")
		}
		res.Usage.Add(resp.Usage)

		if resp.Content != "" {
			if res.Content != "" {
				res.Content += "\n"
			}
			res.Content += resp.Content
			events.PublishEventToContext(ctx, events.NewPartialCompletionEvent(meta, resp.Content, res.Content))
		}

		if len(resp.ToolCalls) == 0 {
			sess.Manager.AppendMessages(conversation.NewAssistantMessage(resp.Content, nil))
			events.PublishEventToContext(ctx, events.NewFinalEvent(meta, res.Content))
			log.Debug().Str("turn_id", meta.TurnID).Int("iterations", iteration+1).Msg("turnloop: turn complete")
			return res, nil
		}

		toolUses := make([]*conversation.ToolUseContent, 0, len(resp.ToolCalls))
		toolResults := make([]*conversation.ToolResultContent, 0, len(resp.ToolCalls))
		for i, call := range resp.ToolCalls {
			result, outcome := l.runToolCall(ctx, state, meta, call, i, len(resp.ToolCalls))
			if outcome == confirm.OutcomeAborted {
				// Record what actually ran so every tool_use block still has
				// a paired tool_result before the turn ends.
				if len(toolUses) > 0 {
					sess.Manager.AppendMessages(
						conversation.NewAssistantMessage(resp.Content, toolUses),
						conversation.NewToolResultsMessage(toolResults),
					)
				}
				log.Info().Str("turn_id", meta.TurnID).Str("tool", call.Name).Msg("turnloop: turn aborted at confirmation prompt")
				return l.abort(res, AbortReasonUserAbort), nil
			}
			toolUses = append(toolUses, &conversation.ToolUseContent{ToolID: call.ID, Name: call.Name, Input: call.Arguments})
			toolResults = append(toolResults, &conversation.ToolResultContent{
				ToolID:  call.ID,
				Result:  resultText(result),
				IsError: !result.Success(),
			})
			res.ToolCalls = append(res.ToolCalls, tools.ExecutedToolCall{Call: call, Result: *result})
		}

		sess.Manager.AppendMessages(
			conversation.NewAssistantMessage(resp.Content, toolUses),
			conversation.NewToolResultsMessage(toolResults),
		)
	}

	log.Warn().
		Str("turn_id", meta.TurnID).
		Int("max_iterations", l.maxIterations).
		Msg("turnloop: iteration bound reached before natural completion")
	res.MaxIterationsReached = true
	return res, nil
}

// runToolCall resolves safety and confirmation for one call and executes it
// when approved. Declined and blocked calls get a synthetic failed result so
// the model sees why nothing happened; an aborted call returns no result.
func (l *Loop) runToolCall(ctx context.Context, state *confirm.State, meta events.EventMetadata, call tools.ToolCall, index, total int) (*tools.ToolResult, confirm.Outcome) {
	evCall := events.ToolCall{ID: call.ID, Name: call.Name, Input: string(call.Arguments)}

	requiresConfirmation := false
	if def, err := l.registry.Get(call.Name); err == nil {
		requiresConfirmation = def.RequiresConfirmation
	}

	// The deny list runs before any approval path and is never bypassed,
	// risk mode included.
	if cmd, ok := commandArgument(call.Arguments); ok && l.policy != nil {
		if rule, blocked := l.policy.MatchBlocked(cmd); blocked {
			reason := "blocked by safety policy: " + rule.Rationale
			log.Warn().Str("tool", call.Name).Str("category", string(rule.Category)).Msg("turnloop: command blocked by safety policy")
			events.PublishEventToContext(ctx, events.NewToolSkippedEvent(meta, evCall, reason))
			return &tools.ToolResult{ID: call.ID, Error: reason}, confirm.OutcomeDeclined
		}
		if l.policy.ShouldAutoApprove(cmd, l.riskMode) {
			log.Debug().Str("tool", call.Name).Msg("turnloop: command auto-approved in risk mode")
			return l.execute(ctx, meta, call, evCall, index, total), confirm.OutcomeApproved
		}
	}

	outcome := confirm.OutcomeApproved
	if l.gate != nil {
		var err error
		outcome, err = l.gate.Decide(ctx, state, call.Name, requiresConfirmation, string(call.Arguments))
		if err != nil {
			log.Warn().Err(err).Str("tool", call.Name).Msg("turnloop: confirmation failed, declining call")
		}
	}

	switch outcome {
	case confirm.OutcomeAborted:
		events.PublishEventToContext(ctx, events.NewToolSkippedEvent(meta, evCall, "aborted by user"))
		return nil, confirm.OutcomeAborted
	case confirm.OutcomeDeclined:
		events.PublishEventToContext(ctx, events.NewToolSkippedEvent(meta, evCall, "declined by user"))
		return &tools.ToolResult{ID: call.ID, Error: "declined by user"}, confirm.OutcomeDeclined
	default:
		return l.execute(ctx, meta, call, evCall, index, total), confirm.OutcomeApproved
	}
}

func (l *Loop) execute(ctx context.Context, meta events.EventMetadata, call tools.ToolCall, evCall events.ToolCall, index, total int) *tools.ToolResult {
	events.PublishEventToContext(ctx, events.NewToolCallExecuteEvent(meta, evCall, index, total))
	result := l.executor.ExecuteToolCall(ctx, call, l.registry)
	events.PublishEventToContext(ctx, events.NewToolCallExecutionResultEvent(meta, events.ToolResult{
		ID:     call.ID,
		Result: resultText(result),
	}))
	return result
}

// drainInterruptions empties the captured-input queue and folds it into the
// turn. An abort-classified message ends the turn; everything else is
// injected as a user message before the next provider call.
func (l *Loop) drainInterruptions(ctx context.Context, sess *session.Session, meta events.EventMetadata, res *TurnResult) bool {
	if l.queue == nil {
		return false
	}
	pending := l.queue.Drain()
	if len(pending) == 0 {
		return false
	}

	classified := make([]interrupt.Classified, 0, len(pending))
	for _, m := range pending {
		c := interrupt.Classify(m.Text)
		c.Timestamp = m.Timestamp
		classified = append(classified, c)
	}
	processed := interrupt.Process(classified)
	events.PublishEventToContext(ctx, events.NewInterruptEvent(meta, processed.Summary))

	if processed.ShouldAbort {
		log.Info().Str("turn_id", meta.TurnID).Str("summary", processed.Summary).Msg("turnloop: turn aborted by queued message")
		l.abort(res, AbortReasonUserInterrupt)
		return true
	}
	if block := processed.Format(); block != "" {
		log.Debug().Int("messages", len(pending)).Msg("turnloop: injecting queued feedback into conversation")
		sess.Manager.AppendMessages(conversation.NewUserMessage(block))
	}
	return false
}

func (l *Loop) definitions() []tools.ToolDefinition {
	if l.registry == nil {
		return nil
	}
	return l.registry.List()
}

func (l *Loop) abort(res *TurnResult, reason string) *TurnResult {
	res.Aborted = true
	res.AbortReason = reason
	res.PartialContent = res.Content
	return res
}

// resultText renders a tool result for the paired tool_result block.
func resultText(r *tools.ToolResult) string {
	if r == nil {
		return ""
	}
	if r.Error != "" {
		return r.Error
	}
	return r.Output()
}

// commandArgument extracts the shell command from a call's arguments when
// the tool takes one. Only command-bearing calls go through the safety
// policy and risk-mode auto-approval.
func commandArgument(args json.RawMessage) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	var probe struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(args, &probe); err != nil {
		return "", false
	}
	return probe.Command, probe.Command != ""
}
