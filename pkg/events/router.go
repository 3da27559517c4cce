package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// EventRouter wires event publishers to handler functions over an in-process
// gochannel pub/sub. Consumers register handlers per topic; the router
// decodes the JSON payload back into a typed Event.
type EventRouter struct {
	logger     watermill.LoggerAdapter
	Publisher  message.Publisher
	Subscriber message.Subscriber
	router     *message.Router
}

type EventRouterOption func(*EventRouter)

func WithRouterLogger(logger watermill.LoggerAdapter) EventRouterOption {
	return func(r *EventRouter) {
		r.logger = logger
	}
}

func NewEventRouter(options ...EventRouterOption) (*EventRouter, error) {
	ret := &EventRouter{
		logger: watermill.NopLogger{},
	}
	for _, o := range options {
		o(ret)
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, ret.logger)
	ret.Publisher = pubSub
	ret.Subscriber = pubSub

	router, err := message.NewRouter(message.RouterConfig{}, ret.logger)
	if err != nil {
		return nil, errors.Wrap(err, "create router")
	}
	ret.router = router

	return ret, nil
}

// EventHandler receives decoded events from a subscribed topic.
type EventHandler func(ctx context.Context, ev Event) error

// AddHandler registers a handler for all events published on the topic.
func (e *EventRouter) AddHandler(name, topic string, handler EventHandler) {
	e.router.AddNoPublisherHandler(name, topic, e.Subscriber, func(msg *message.Message) error {
		ev, err := NewEventFromJSON(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Str("message_id", msg.UUID).Msg("events: dropping undecodable event")
			return nil
		}
		return handler(msg.Context(), ev)
	})
}

// Run starts the router and blocks until the context is cancelled.
func (e *EventRouter) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return e.router.Run(ctx)
	})
	return eg.Wait()
}

// Running closes once the router has started and handlers are attached.
func (e *EventRouter) Running() chan struct{} {
	return e.router.Running()
}

func (e *EventRouter) Close() error {
	log.Debug().Msg("events: closing publisher")
	if err := e.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("events: failed to close publisher")
	}
	log.Debug().Msg("events: closing router")
	return e.router.Close()
}
