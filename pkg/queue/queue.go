package queue

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// QueuedMessage is one line of user input captured while the agent was busy.
type QueuedMessage struct {
	Text      string
	Timestamp time.Time
}

const DefaultMaxSize = 100

// MessageQueue is a bounded FIFO of captured user messages. Producers
// (the input capture goroutine) and consumers (the turn loop) run on
// different goroutines, so access is mutex-guarded. When the queue is full,
// the oldest entry is dropped, never the newest.
type MessageQueue struct {
	mu      sync.Mutex
	entries []QueuedMessage
	maxSize int
}

func NewMessageQueue(maxSize int) *MessageQueue {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &MessageQueue{maxSize: maxSize}
}

// Enqueue appends a message, dropping the oldest entry if the queue is full.
func (q *MessageQueue) Enqueue(text string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.maxSize {
		dropped := q.entries[0]
		q.entries = q.entries[1:]
		log.Warn().
			Str("dropped", dropped.Text).
			Int("max_size", q.maxSize).
			Msg("queue: capacity exceeded, dropping oldest message")
	}
	q.entries = append(q.entries, QueuedMessage{Text: text, Timestamp: time.Now()})
}

// Dequeue pops the oldest message.
func (q *MessageQueue) Dequeue() (QueuedMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return QueuedMessage{}, false
	}
	m := q.entries[0]
	q.entries = q.entries[1:]
	return m, true
}

// Drain returns all queued messages in arrival order and clears the queue.
func (q *MessageQueue) Drain() []QueuedMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.entries
	q.entries = nil
	return out
}

// Peek returns the oldest message without removing it.
func (q *MessageQueue) Peek() (QueuedMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return QueuedMessage{}, false
	}
	return q.entries[0], true
}

func (q *MessageQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *MessageQueue) IsEmpty() bool {
	return q.Size() == 0
}

func (q *MessageQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
}
