package core

import (
	"slices"
	"strings"
	"sync"
	"testing"
)

// recorder is a Sink that keeps every delivered line.
type recorder struct {
	mu     sync.Mutex
	lines  []string
	refuse bool
}

func (r *recorder) Send(line string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refuse {
		return false
	}
	r.lines = append(r.lines, line)
	return true
}

func (r *recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.lines)
}

func (r *recorder) Reset() {
	r.mu.Lock()
	r.lines = nil
	r.mu.Unlock()
}

func (r *recorder) Count(line string) int {
	n := 0
	for _, l := range r.Lines() {
		if l == line {
			n++
		}
	}
	return n
}

func (r *recorder) HasPrefix(prefix string) bool {
	for _, l := range r.Lines() {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	dir, err := NewDirectory(DefaultRooms())
	if err != nil {
		t.Fatalf("new directory: %v", err)
	}
	return NewRegistry(dir, nil)
}

// newTestSession registers a session named name and returns its recorder.
func newTestSession(t *testing.T, reg *Registry, id, name string) (*Session, *recorder) {
	t.Helper()

	rec := &recorder{}
	s := NewSession(id, rec)
	if name != "" {
		s.setName(name)
	}
	if reg != nil {
		if err := reg.Register(s); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	return s, rec
}

func mustJoin(t *testing.T, reg *Registry, s *Session, room string) {
	t.Helper()

	if !reg.JoinRoom(s, room) {
		t.Fatalf("%s could not join %s", s.ID(), room)
	}
}
