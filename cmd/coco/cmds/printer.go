package cmds

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/corbat-tech/coco/pkg/events"
)

const inputPreviewLen = 120

// turnPrinter renders turn events to the terminal as they happen.
type turnPrinter struct {
	w io.Writer

	toolStyle    lipgloss.Style
	skippedStyle lipgloss.Style
	errorStyle   lipgloss.Style
	dimStyle     lipgloss.Style
}

func newTurnPrinter(w io.Writer) *turnPrinter {
	return &turnPrinter{
		w:            w,
		toolStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		skippedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		dimStyle:     lipgloss.NewStyle().Faint(true),
	}
}

func (p *turnPrinter) PublishEvent(ev events.Event) error {
	switch e := ev.(type) {
	case *events.EventPartialCompletion:
		// assistant text shows up as soon as each iteration produces it;
		// the final event repeats the accumulated text, so it is not printed
		fmt.Fprintln(p.w, e.Delta)
	case *events.EventToolCallExecute:
		fmt.Fprintf(p.w, "%s %s %s\n",
			p.toolStyle.Render(fmt.Sprintf("[%d/%d]", e.Index+1, e.Total)),
			e.ToolCall.Name,
			p.dimStyle.Render(preview(e.ToolCall.Input)))
	case *events.EventToolSkipped:
		fmt.Fprintf(p.w, "%s %s: %s\n", p.skippedStyle.Render("skipped"), e.ToolCall.Name, e.Reason)
	case *events.EventInterrupt:
		fmt.Fprintln(p.w, p.skippedStyle.Render(e.Text))
	case *events.EventError:
		fmt.Fprintln(p.w, p.errorStyle.Render("error: "+e.ErrorString))
	}
	return nil
}

func preview(s string) string {
	if len(s) > inputPreviewLen {
		return s[:inputPreviewLen] + "..."
	}
	return s
}

const eventTopic = "chat"

// startEventLogger runs an event router whose only handler logs every event.
// The returned sink publishes into the router; cleanup stops it.
func startEventLogger(ctx context.Context) (events.EventSink, func(), error) {
	router, err := events.NewEventRouter()
	if err != nil {
		return nil, nil, err
	}
	router.AddHandler("event-log", eventTopic, func(_ context.Context, ev events.Event) error {
		log.Info().Str("type", string(ev.Type())).Object("meta", ev.Metadata()).Msg("event")
		return nil
	})

	manager := events.NewPublisherManager()
	manager.SubscribePublisher(eventTopic, router.Publisher)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		if err := router.Run(ctx); err != nil {
			log.Warn().Err(err).Msg("chat: event router stopped")
		}
	}()
	<-router.Running()

	cleanup := func() {
		cancel()
		if err := router.Close(); err != nil {
			log.Warn().Err(err).Msg("chat: closing event router")
		}
	}
	return manager, cleanup, nil
}
