package turnloop

import (
	"github.com/corbat-tech/coco/pkg/engine"
	"github.com/corbat-tech/coco/pkg/tools"
)

// Abort reasons reported in TurnResult.AbortReason.
const (
	// AbortReasonUserCancel is an external cancellation (context cancelled).
	AbortReasonUserCancel = "user_cancel"
	// AbortReasonUserAbort is an explicit abort choice at a confirmation prompt.
	AbortReasonUserAbort = "user_abort"
	// AbortReasonUserInterrupt is an abort-classified message typed while the
	// turn was running.
	AbortReasonUserInterrupt = "user_interrupt"
)

// TurnResult is the outcome of one agent turn.
type TurnResult struct {
	// Content is the accumulated assistant text across iterations.
	Content   string                   `json:"content"`
	ToolCalls []tools.ExecutedToolCall `json:"tool_calls"`
	Usage     engine.Usage             `json:"usage"`

	Aborted        bool   `json:"aborted"`
	PartialContent string `json:"partial_content,omitempty"`
	AbortReason    string `json:"abort_reason,omitempty"`

	// MaxIterationsReached distinguishes a bounded-iteration stop from
	// natural completion. The turn is not aborted, but the task may be
	// incomplete.
	MaxIterationsReached bool `json:"max_iterations_reached,omitempty"`
}
