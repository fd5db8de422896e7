package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Registry tracks every live session and serializes room membership changes.
// One instance is created at startup and shared by all connection workers.
type Registry struct {
	rooms *Directory
	log   *zerolog.Logger

	// mu guards sessions and is held for writing across every membership
	// transition, so a session is never visible in two rooms at once.
	mu       sync.RWMutex
	sessions map[string]*Session
}

// SessionInfo is a read-only view of a live session.
type SessionInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Room        string    `json:"room,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
}

// NewRegistry creates a registry over a fixed room directory.
func NewRegistry(rooms *Directory, logger *zerolog.Logger) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Registry{
		rooms:    rooms,
		log:      logger,
		sessions: make(map[string]*Session),
	}
}

// Directory returns the room directory.
func (r *Registry) Directory() *Directory {
	return r.rooms
}

// Register adds s to the live set. Ids must be unique among live sessions.
func (r *Registry) Register(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.Closed() {
		return ErrSessionClosed
	}
	if _, exists := r.sessions[s.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSession, s.ID())
	}
	r.sessions[s.ID()] = s
	r.log.Info().Str("session_id", s.ID()).Int("total", len(r.sessions)).Msg("session registered")
	return nil
}

// Unregister removes s from its room and then from the live set, and marks
// it closed. It returns false if s was not registered.
func (r *Registry) Unregister(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.sessions[s.ID()]; !ok || current != s {
		return false
	}
	r.leaveAllLocked(s)
	delete(r.sessions, s.ID())
	s.markClosed()
	r.log.Info().Str("session_id", s.ID()).Str("name", s.Name()).Int("total", len(r.sessions)).Msg("session unregistered")
	return true
}

func (r *Registry) lookup(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// FindByName returns a live session whose display name matches ignoring case.
func (r *Registry) FindByName(name string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if strings.EqualFold(s.Name(), name) {
			return s, true
		}
	}
	return nil, false
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sessions returns live sessions ordered by connection time.
func (r *Registry) Sessions() []SessionInfo {
	r.mu.RLock()
	out := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		info := SessionInfo{ID: s.ID(), Name: s.Name(), ConnectedAt: s.ConnectedAt()}
		if room := s.Room(); room != nil {
			info.Room = room.Name()
		}
		out = append(out, info)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

// Rooms returns a snapshot of every room in configured order.
func (r *Registry) Rooms() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rooms := r.rooms.All()
	out := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Info())
	}
	return out
}

// JoinRoom moves s into the named room. It returns false when the room does
// not exist or is full; callers tell the two apart with a directory lookup.
// On success s has left every other room first.
func (r *Registry) JoinRoom(s *Session, roomName string) bool {
	room, ok := r.rooms.FindByName(roomName)
	if !ok {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s.Closed() || room.IsFull() {
		return false
	}
	r.leaveAllLocked(s)
	if !room.TryAdd(s) {
		return false
	}
	s.setRoom(room)
	r.log.Info().Str("session_id", s.ID()).Str("room", room.Name()).Int("size", room.Size()).Msg("joined room")
	return true
}

// LeaveRoom removes s from its current room and returns that room.
func (r *Registry) LeaveRoom(s *Session) (*Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := s.Room()
	if room == nil {
		return nil, false
	}
	removed := room.Remove(s)
	s.setRoom(nil)
	if !removed {
		return nil, false
	}
	r.log.Info().Str("session_id", s.ID()).Str("room", room.Name()).Msg("left room")
	return room, true
}

// leaveAllLocked sweeps the whole directory, not just the current room.
func (r *Registry) leaveAllLocked(s *Session) {
	for _, room := range r.rooms.All() {
		if room.Remove(s) {
			r.log.Debug().Str("session_id", s.ID()).Str("room", room.Name()).Msg("removed from room")
		}
	}
	s.setRoom(nil)
}

// broadcast fans line out to the current room of s, excluding s.
func (r *Registry) broadcast(s *Session, line string) (*Room, Delivery, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := s.Room()
	if room == nil {
		return nil, Delivery{}, false
	}
	res := room.Broadcast(line, s)
	return room, res, true
}
