package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Executor runs approved tool calls. Calls are executed one at a time by the
// turn loop, so the executor only deals with a single call.
type Executor interface {
	ExecuteToolCall(ctx context.Context, call ToolCall, registry Registry) *ToolResult
}

const DefaultExecutionTimeout = 60 * time.Second

// DefaultExecutor executes a call with a per-call timeout, argument
// validation and panic recovery. Tool failures are reported through
// ToolResult.Error, never as a Go error, so one broken tool cannot end the
// iteration.
type DefaultExecutor struct {
	timeout time.Duration
}

var _ Executor = (*DefaultExecutor)(nil)

type ExecutorOption func(*DefaultExecutor)

func WithExecutionTimeout(d time.Duration) ExecutorOption {
	return func(e *DefaultExecutor) { e.timeout = d }
}

func NewDefaultExecutor(opts ...ExecutorOption) *DefaultExecutor {
	e := &DefaultExecutor{timeout: DefaultExecutionTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *DefaultExecutor) ExecuteToolCall(ctx context.Context, call ToolCall, registry Registry) *ToolResult {
	start := time.Now()

	def, err := registry.Get(call.Name)
	if err != nil {
		return &ToolResult{ID: call.ID, Error: fmt.Sprintf("tool not found: %s", call.Name), Duration: time.Since(start)}
	}

	if err := def.ValidateArguments(call.Arguments); err != nil {
		return &ToolResult{ID: call.ID, Error: err.Error(), Duration: time.Since(start)}
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	log.Debug().
		Str("tool", call.Name).
		Str("tool_id", call.ID).
		Msg("tools: executing call")

	out, err := e.invoke(execCtx, def, call.Arguments)
	duration := time.Since(start)

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return &ToolResult{ID: call.ID, Error: fmt.Sprintf("tool %s timed out after %s", call.Name, e.timeout), Duration: duration}
		}
		return &ToolResult{ID: call.ID, Error: err.Error(), Duration: duration}
	}
	return &ToolResult{ID: call.ID, Result: out, Duration: duration}
}

// invoke runs the tool function, converting panics into errors.
func (e *DefaultExecutor) invoke(ctx context.Context, def *ToolDefinition, args json.RawMessage) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("tool", def.Name).
				Interface("panic", r).
				Msg("tools: tool panicked")
			out = nil
			err = fmt.Errorf("tool %s panicked: %v", def.Name, r)
		}
	}()
	return def.Fn(ctx, args)
}
