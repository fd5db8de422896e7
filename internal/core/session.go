package core

import (
	"sync"
	"time"
)

// Sink delivers one line of text to a connection. Send must not block; it
// returns false when the line could not be queued.
type Sink interface {
	Send(line string) bool
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(line string) bool

// Send calls f(line).
func (f SinkFunc) Send(line string) bool { return f(line) }

// Session is the server-side state of one live connection.
type Session struct {
	id          string
	connectedAt time.Time
	out         Sink

	mu     sync.RWMutex
	name   string
	room   *Room
	closed bool
}

// NewSession constructs an unjoined session whose display name defaults to id.
func NewSession(id string, out Sink) *Session {
	return &Session{
		id:          id,
		connectedAt: time.Now(),
		out:         out,
		name:        id,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) ConnectedAt() time.Time { return s.connectedAt }

// Name returns the display name.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Room returns the room the session currently occupies, or nil.
func (s *Session) Room() *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room
}

// Closed reports whether the session has been unregistered.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Send queues one line on the session's outbound sink.
func (s *Session) Send(line string) bool {
	if s.Closed() || s.out == nil {
		return false
	}
	return s.out.Send(line)
}

func (s *Session) sendLines(lines ...string) {
	for _, line := range lines {
		s.Send(line)
	}
}

func (s *Session) setName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

func (s *Session) setRoom(r *Room) {
	s.mu.Lock()
	s.room = r
	s.mu.Unlock()
}

func (s *Session) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.room = nil
	s.mu.Unlock()
}
