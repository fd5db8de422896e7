package core

import (
	"fmt"
	"strings"
)

// LobbyRoom is joined automatically after the handshake and on LOGIN.
const LobbyRoom = "Lobby"

// RoomSpec describes one room created at startup.
type RoomSpec struct {
	Name     string
	Capacity int
}

// DefaultRooms returns the stock room set.
func DefaultRooms() []RoomSpec {
	return []RoomSpec{
		{Name: "Lobby", Capacity: 5},
		{Name: "testRoom1", Capacity: 5},
		{Name: "testRoom2", Capacity: 5},
		{Name: "testRoom3", Capacity: 5},
		{Name: "testRoom4", Capacity: 5},
	}
}

// Directory is the fixed, name-indexed set of rooms. It is immutable after
// construction, so lookups need no locking.
type Directory struct {
	rooms  []*Room
	byName map[string]*Room
}

// NewDirectory builds rooms in the given order. Names are unique ignoring case.
func NewDirectory(specs []RoomSpec) (*Directory, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no rooms", ErrInvalidRooms)
	}

	d := &Directory{
		rooms:  make([]*Room, 0, len(specs)),
		byName: make(map[string]*Room, len(specs)),
	}
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: empty room name", ErrInvalidRooms)
		}
		if spec.Capacity <= 0 {
			return nil, fmt.Errorf("%w: room %q capacity must be positive", ErrInvalidRooms, name)
		}
		key := strings.ToLower(name)
		if _, dup := d.byName[key]; dup {
			return nil, fmt.Errorf("%w: duplicate room %q", ErrInvalidRooms, name)
		}
		room := NewRoom(name, spec.Capacity)
		d.rooms = append(d.rooms, room)
		d.byName[key] = room
	}
	return d, nil
}

// FindByName returns the room whose name matches ignoring case.
func (d *Directory) FindByName(name string) (*Room, bool) {
	room, ok := d.byName[strings.ToLower(name)]
	return room, ok
}

// All returns rooms in configured order.
func (d *Directory) All() []*Room {
	return append([]*Room(nil), d.rooms...)
}

// Names returns room names in configured order.
func (d *Directory) Names() []string {
	names := make([]string, 0, len(d.rooms))
	for _, r := range d.rooms {
		names = append(names, r.Name())
	}
	return names
}
