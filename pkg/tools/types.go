package tools

import (
	"encoding/json"
	"time"
)

// ToolCall is a model-requested invocation of a registered tool. Produced by
// the provider adapter, consumed exactly once by the turn loop.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the outcome of one tool call.
type ToolResult struct {
	ID       string        `json:"id"`
	Result   any           `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

func (r *ToolResult) Success() bool {
	return r != nil && r.Error == ""
}

// Output renders the result payload as a string for tool-result blocks.
func (r *ToolResult) Output() string {
	if r == nil || r.Result == nil {
		return ""
	}
	if s, ok := r.Result.(string); ok {
		return s
	}
	b, err := json.Marshal(r.Result)
	if err != nil {
		return ""
	}
	return string(b)
}

// ExecutedToolCall pairs a request with its result, for turn reporting.
// Never mutated after creation.
type ExecutedToolCall struct {
	Call   ToolCall   `json:"call"`
	Result ToolResult `json:"result"`
}
