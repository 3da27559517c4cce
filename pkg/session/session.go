package session

import (
	"github.com/google/uuid"

	"github.com/corbat-tech/coco/pkg/conversation"
)

// Session owns the state that outlives a single turn: the conversation
// history and the trusted-tool set.
type Session struct {
	ID          string
	Manager     conversation.Manager
	Trust       *TrustSet
	ProjectPath string
}

type SessionOption func(*Session)

func WithManager(m conversation.Manager) SessionOption {
	return func(s *Session) { s.Manager = m }
}

func WithTrust(t *TrustSet) SessionOption {
	return func(s *Session) { s.Trust = t }
}

func WithSessionProjectPath(path string) SessionOption {
	return func(s *Session) { s.ProjectPath = path }
}

func New(opts ...SessionOption) *Session {
	s := &Session{
		ID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Manager == nil {
		s.Manager = conversation.NewManager()
	}
	if s.Trust == nil {
		s.Trust = NewTrustSet()
	}
	return s
}
