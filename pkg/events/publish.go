package events

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
)

// PublisherManager distributes events to a set of watermill publishers, each
// subscribed on a topic. Outgoing messages carry a sequence number in the
// order Publish was called.
type PublisherManager struct {
	mu             sync.Mutex
	publishers     map[string][]message.Publisher
	sequenceNumber uint64
}

func NewPublisherManager() *PublisherManager {
	return &PublisherManager{
		publishers: make(map[string][]message.Publisher),
	}
}

func (s *PublisherManager) SubscribePublisher(topic string, pub message.Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishers[topic] = append(s.publishers[topic], pub)
}

// Publish serializes the event to JSON and distributes it to all publishers.
func (s *PublisherManager) Publish(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), b)
	msg.Metadata.Set("sequence_number", fmt.Sprintf("%d", s.sequenceNumber))
	s.sequenceNumber++

	for topic, pubs := range s.publishers {
		for _, pub := range pubs {
			if err := pub.Publish(topic, msg); err != nil {
				log.Warn().Err(err).Str("topic", topic).Msg("events: failed to publish")
			}
		}
	}

	return nil
}

// PublishEvent implements EventSink, so a PublisherManager can be attached
// to a context alongside in-process sinks.
func (s *PublisherManager) PublishEvent(ev Event) error {
	return s.Publish(ev)
}

var _ EventSink = (*PublisherManager)(nil)
