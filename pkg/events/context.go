package events

import (
	"context"
)

type ctxKey int

const (
	ctxKeyEventSinks ctxKey = iota
)

// EventSink is a destination for turn events: the terminal renderer, a
// watermill publisher, a log, or a test capture.
type EventSink interface {
	PublishEvent(event Event) error
}

// WithEventSinks attaches one or more EventSink instances to the context so
// downstream code can publish events without threading configuration through.
func WithEventSinks(ctx context.Context, sinks ...EventSink) context.Context {
	if len(sinks) == 0 {
		return ctx
	}
	existing := GetEventSinks(ctx)
	combined := append([]EventSink{}, existing...)
	combined = append(combined, sinks...)
	return context.WithValue(ctx, ctxKeyEventSinks, combined)
}

// GetEventSinks returns the sinks attached to the context.
func GetEventSinks(ctx context.Context) []EventSink {
	if v := ctx.Value(ctxKeyEventSinks); v != nil {
		if sinks, ok := v.([]EventSink); ok {
			return sinks
		}
	}
	return nil
}

// PublishEventToContext publishes to all sinks on the context. Individual
// sink errors are ignored so a broken consumer cannot disrupt the turn.
func PublishEventToContext(ctx context.Context, event Event) {
	for _, sink := range GetEventSinks(ctx) {
		_ = sink.PublishEvent(event)
	}
}
