package notification

import (
	"context"
	"errors"
	"sync"
)

// recordingSender records sent messages. When gate is set, Send announces the
// message on started and waits for gate to be closed.
type recordingSender struct {
	mu      sync.Mutex
	sent    []Message
	err     error
	started chan Message
	gate    chan struct{}
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	if s.started != nil {
		s.started <- msg
	}
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *recordingSender) messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

var errSend = errors.New("smtp down")
