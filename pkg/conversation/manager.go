package conversation

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Manager owns a session's message history. History is append-only while a
// turn is running.
type Manager interface {
	GetConversation() Conversation
	AppendMessages(messages ...*Message)
	ConversationID() uuid.UUID
}

type ManagerImpl struct {
	mu       sync.RWMutex
	id       uuid.UUID
	messages Conversation
}

var _ Manager = (*ManagerImpl)(nil)

type ManagerOption func(*ManagerImpl)

func WithMessages(messages ...*Message) ManagerOption {
	return func(m *ManagerImpl) {
		m.messages = append(m.messages, messages...)
	}
}

func WithConversationID(id uuid.UUID) ManagerOption {
	return func(m *ManagerImpl) {
		m.id = id
	}
}

func NewManager(opts ...ManagerOption) *ManagerImpl {
	m := &ManagerImpl{id: uuid.New()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *ManagerImpl) ConversationID() uuid.UUID {
	return m.id
}

// GetConversation returns a snapshot of the history. The slice is a copy; the
// messages themselves are shared and must not be mutated.
func (m *ManagerImpl) GetConversation() Conversation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(Conversation, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m *ManagerImpl) AppendMessages(messages ...*Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, messages...)
}

// ValidateToolPairing checks that every tool-use block in the conversation is
// followed by a tool-result block with the same id before any later
// assistant message. Providers reject histories that violate this.
func ValidateToolPairing(conv Conversation) error {
	pending := map[string]struct{}{}
	for _, msg := range conv {
		if len(pending) > 0 && msg.Role == RoleAssistant {
			for id := range pending {
				return errors.Errorf("tool use %s has no matching tool result", id)
			}
		}
		for _, tu := range msg.ToolUses() {
			if _, dup := pending[tu.ToolID]; dup {
				return errors.Errorf("duplicate tool use id %s", tu.ToolID)
			}
			pending[tu.ToolID] = struct{}{}
		}
		for _, tr := range msg.ToolResults() {
			if _, ok := pending[tr.ToolID]; !ok {
				return errors.Errorf("tool result %s has no matching tool use", tr.ToolID)
			}
			delete(pending, tr.ToolID)
		}
	}
	for id := range pending {
		return errors.Errorf("tool use %s has no matching tool result", id)
	}
	return nil
}
