package events

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// text streaming during inference
	EventTypeStart             EventType = "start"
	EventTypePartialCompletion EventType = "partial"
	EventTypeFinal             EventType = "final"

	// thinking indicator around a provider call
	EventTypeThinkingStart EventType = "thinking-start"
	EventTypeThinkingEnd   EventType = "thinking-end"

	// local tool execution phases
	EventTypeToolCallExecute         EventType = "tool-call-execute"
	EventTypeToolCallExecutionResult EventType = "tool-call-execution-result"
	EventTypeToolSkipped             EventType = "tool-skipped"

	EventTypeInterrupt EventType = "interrupt"
	EventTypeError     EventType = "error"
	EventTypeLog       EventType = "log"
)

// EventMetadata identifies where in a session an event happened.
type EventMetadata struct {
	ID             uuid.UUID      `json:"id"`
	ConversationID uuid.UUID      `json:"conversation_id,omitempty"`
	TurnID         string         `json:"turn_id,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}

func (m EventMetadata) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("id", m.ID.String())
	if m.ConversationID != uuid.Nil {
		ev.Str("conversation_id", m.ConversationID.String())
	}
	if m.TurnID != "" {
		ev.Str("turn_id", m.TurnID)
	}
}

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// raw JSON the event was decoded from, if any
	payload []byte
}

func (e *EventImpl) Type() EventType         { return e.Type_ }
func (e *EventImpl) Metadata() EventMetadata { return e.Metadata_ }
func (e *EventImpl) Payload() []byte         { return e.payload }
func (e *EventImpl) SetPayload(b []byte)     { e.payload = b }

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

var _ Event = (*EventImpl)(nil)

type EventStart struct {
	EventImpl
}

func NewStartEvent(metadata EventMetadata) *EventStart {
	return &EventStart{EventImpl: EventImpl{Type_: EventTypeStart, Metadata_: metadata}}
}

type EventPartialCompletion struct {
	EventImpl
	Delta string `json:"delta"`
	// Completion is the full text accumulated so far
	Completion string `json:"completion"`
}

func NewPartialCompletionEvent(metadata EventMetadata, delta string, completion string) *EventPartialCompletion {
	return &EventPartialCompletion{
		EventImpl:  EventImpl{Type_: EventTypePartialCompletion, Metadata_: metadata},
		Delta:      delta,
		Completion: completion,
	}
}

type EventFinal struct {
	EventImpl
	Text string `json:"text"`
}

func NewFinalEvent(metadata EventMetadata, text string) *EventFinal {
	return &EventFinal{EventImpl: EventImpl{Type_: EventTypeFinal, Metadata_: metadata}, Text: text}
}

type EventThinkingStart struct {
	EventImpl
}

func NewThinkingStartEvent(metadata EventMetadata) *EventThinkingStart {
	return &EventThinkingStart{EventImpl: EventImpl{Type_: EventTypeThinkingStart, Metadata_: metadata}}
}

type EventThinkingEnd struct {
	EventImpl
}

func NewThinkingEndEvent(metadata EventMetadata) *EventThinkingEnd {
	return &EventThinkingEnd{EventImpl: EventImpl{Type_: EventTypeThinkingEnd, Metadata_: metadata}}
}

// ToolCall is the event payload describing one requested tool invocation.
type ToolCall struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Input string `json:"input"`
}

// ToolResult is the event payload describing one finished tool invocation.
type ToolResult struct {
	ID     string `json:"id"`
	Result string `json:"result"`
}

type EventToolCallExecute struct {
	EventImpl
	ToolCall ToolCall `json:"tool_call"`
	Index    int      `json:"index"`
	Total    int      `json:"total"`
}

func NewToolCallExecuteEvent(metadata EventMetadata, toolCall ToolCall, index, total int) *EventToolCallExecute {
	return &EventToolCallExecute{
		EventImpl: EventImpl{Type_: EventTypeToolCallExecute, Metadata_: metadata},
		ToolCall:  toolCall,
		Index:     index,
		Total:     total,
	}
}

type EventToolCallExecutionResult struct {
	EventImpl
	ToolResult ToolResult `json:"tool_result"`
}

func NewToolCallExecutionResultEvent(metadata EventMetadata, toolResult ToolResult) *EventToolCallExecutionResult {
	return &EventToolCallExecutionResult{
		EventImpl:  EventImpl{Type_: EventTypeToolCallExecutionResult, Metadata_: metadata},
		ToolResult: toolResult,
	}
}

type EventToolSkipped struct {
	EventImpl
	ToolCall ToolCall `json:"tool_call"`
	Reason   string   `json:"reason"`
}

func NewToolSkippedEvent(metadata EventMetadata, toolCall ToolCall, reason string) *EventToolSkipped {
	return &EventToolSkipped{
		EventImpl: EventImpl{Type_: EventTypeToolSkipped, Metadata_: metadata},
		ToolCall:  toolCall,
		Reason:    reason,
	}
}

type EventInterrupt struct {
	EventImpl
	Text string `json:"text"`
}

func NewInterruptEvent(metadata EventMetadata, text string) *EventInterrupt {
	return &EventInterrupt{EventImpl: EventImpl{Type_: EventTypeInterrupt, Metadata_: metadata}, Text: text}
}

type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	return &EventError{EventImpl: EventImpl{Type_: EventTypeError, Metadata_: metadata}, ErrorString: err.Error()}
}

type EventLog struct {
	EventImpl
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func NewLogEvent(metadata EventMetadata, level, message string, fields map[string]any) *EventLog {
	return &EventLog{
		EventImpl: EventImpl{Type_: EventTypeLog, Metadata_: metadata},
		Level:     level,
		Message:   message,
		Fields:    fields,
	}
}

// NewEventFromJSON decodes an event published through the router back into
// its concrete type.
func NewEventFromJSON(b []byte) (Event, error) {
	var peek struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(b, &peek); err != nil {
		return nil, errors.Wrap(err, "peek event type")
	}

	var ev Event
	switch peek.Type {
	case EventTypeStart:
		ev = &EventStart{}
	case EventTypePartialCompletion:
		ev = &EventPartialCompletion{}
	case EventTypeFinal:
		ev = &EventFinal{}
	case EventTypeThinkingStart:
		ev = &EventThinkingStart{}
	case EventTypeThinkingEnd:
		ev = &EventThinkingEnd{}
	case EventTypeToolCallExecute:
		ev = &EventToolCallExecute{}
	case EventTypeToolCallExecutionResult:
		ev = &EventToolCallExecutionResult{}
	case EventTypeToolSkipped:
		ev = &EventToolSkipped{}
	case EventTypeInterrupt:
		ev = &EventInterrupt{}
	case EventTypeError:
		ev = &EventError{}
	case EventTypeLog:
		ev = &EventLog{}
	default:
		return nil, errors.Errorf("unknown event type %q", peek.Type)
	}

	if err := json.Unmarshal(b, ev); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s event", peek.Type)
	}
	if impl, ok := ev.(interface{ SetPayload([]byte) }); ok {
		impl.SetPayload(b)
	}
	return ev, nil
}
