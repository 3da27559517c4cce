package events

import (
	"github.com/rs/zerolog"
)

// LoggerSink writes every event to a zerolog logger. Used as the default
// sink when no UI is attached.
type LoggerSink struct {
	logger zerolog.Logger
}

func NewLoggerSink(logger zerolog.Logger) *LoggerSink {
	return &LoggerSink{logger: logger}
}

func (s *LoggerSink) PublishEvent(ev Event) error {
	logEvent := s.logger.Debug().Str("event_type", string(ev.Type()))

	switch e := ev.(type) {
	case *EventPartialCompletion:
		logEvent = logEvent.Str("delta", e.Delta)
	case *EventFinal:
		logEvent = logEvent.Str("text", e.Text)
	case *EventToolCallExecute:
		logEvent = logEvent.Str("tool", e.ToolCall.Name).Str("tool_id", e.ToolCall.ID)
	case *EventToolCallExecutionResult:
		logEvent = logEvent.Str("tool_id", e.ToolResult.ID)
	case *EventToolSkipped:
		logEvent = logEvent.Str("tool", e.ToolCall.Name).Str("reason", e.Reason)
	case *EventInterrupt:
		logEvent = logEvent.Str("text", e.Text)
	case *EventError:
		logEvent = logEvent.Str("error", e.ErrorString)
	}

	logEvent.Msg("events: published")
	return nil
}

var _ EventSink = (*LoggerSink)(nil)
