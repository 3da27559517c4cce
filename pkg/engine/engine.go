package engine

import (
	"context"

	"github.com/corbat-tech/coco/pkg/conversation"
	"github.com/corbat-tech/coco/pkg/tools"
)

// Usage accumulates provider token counts over a turn.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Response is one provider answer: optional assistant text, zero or more
// requested tool calls, and token usage. An empty ToolCalls slice signals
// natural turn completion.
type Response struct {
	Content   string
	ToolCalls []tools.ToolCall
	Usage     Usage
}

// Engine is the provider adapter consumed by the turn loop. Retry and
// backoff are the adapter's own concern; the loop performs exactly one call
// per iteration and propagates failures.
type Engine interface {
	RunInference(ctx context.Context, conv conversation.Conversation, defs []tools.ToolDefinition) (*Response, error)
}
