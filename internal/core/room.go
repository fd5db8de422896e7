package core

import (
	"slices"
	"sync"
)

// Room is a capacity-bounded group of sessions. Members are kept in join
// order, which is also the broadcast delivery order.
type Room struct {
	name     string
	capacity int

	mu      sync.RWMutex
	members []*Session
}

// Delivery reports the outcome of a broadcast.
type Delivery struct {
	Delivered int
	Dropped   []string
}

// RoomInfo is a read-only view of a room.
type RoomInfo struct {
	Name     string   `json:"name"`
	Capacity int      `json:"capacity"`
	Members  []string `json:"members"`
}

// NewRoom constructs an empty room.
func NewRoom(name string, capacity int) *Room {
	return &Room{
		name:     name,
		capacity: capacity,
	}
}

func (r *Room) Name() string { return r.name }

func (r *Room) Capacity() int { return r.capacity }

// TryAdd inserts s unless the room is full or s is already a member.
// On success every other member is told that s joined.
func (r *Room) TryAdd(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.members) >= r.capacity || slices.Contains(r.members, s) {
		return false
	}
	r.members = append(r.members, s)
	r.broadcastLocked(joinedNotice(s.Name()), s)
	return true
}

// Remove deletes s. Remaining members, if any, are told that s left.
func (r *Room) Remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.Index(r.members, s)
	if idx < 0 {
		return false
	}
	r.members = slices.Delete(r.members, idx, idx+1)
	if len(r.members) > 0 {
		r.broadcastLocked(leftNotice(s.Name()), nil)
	}
	return true
}

func (r *Room) contains(s *Session) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.members, s)
}

// IsFull reports whether the room is at capacity.
func (r *Room) IsFull() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members) >= r.capacity
}

// Size returns the number of members.
func (r *Room) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// MemberNames returns display names in join order.
func (r *Room) MemberNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.members))
	for _, m := range r.members {
		names = append(names, m.Name())
	}
	return names
}

// Info returns a snapshot of the room.
func (r *Room) Info() RoomInfo {
	return RoomInfo{
		Name:     r.name,
		Capacity: r.capacity,
		Members:  r.MemberNames(),
	}
}

// Broadcast sends line to every member except exclude (which may be nil).
func (r *Room) Broadcast(line string, exclude *Session) Delivery {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.broadcastLocked(line, exclude)
}

func (r *Room) broadcastLocked(line string, exclude *Session) Delivery {
	var res Delivery
	for _, m := range r.members {
		if m == exclude {
			continue
		}
		if !m.Send(line) {
			res.Dropped = append(res.Dropped, m.ID())
			continue
		}
		res.Delivered++
	}
	return res
}
