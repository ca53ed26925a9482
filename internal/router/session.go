package router

import (
	"sync"

	"github.com/google/uuid"
)

// Session holds the state a router keeps between tasks, such as the device
// currently being worked on. It is safe for concurrent use
type Session struct {
	id     string
	device string
	mu     sync.RWMutex
}

// NewSession creates an empty Session with a random ID
func NewSession() *Session {
	return &Session{
		id: uuid.New().String(),
	}
}

// ID returns the Session's identifier
func (s *Session) ID() string {
	return s.id
}

// ActiveDevice returns the device selected by an earlier task
func (s *Session) ActiveDevice() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.device, s.device != ""
}

// SetActiveDevice selects the device later tasks operate on
func (s *Session) SetActiveDevice(device string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device = device
}
