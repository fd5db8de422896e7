package core

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRegistryRegisterRejectsDuplicateID(t *testing.T) {
	reg := newTestRegistry(t)
	newTestSession(t, reg, "Client-1", "")

	dup := NewSession("Client-1", &recorder{})
	if err := reg.Register(dup); !errors.Is(err, ErrDuplicateSession) {
		t.Fatalf("err = %v, want ErrDuplicateSession", err)
	}
	if reg.Count() != 1 {
		t.Fatalf("count = %d, want 1", reg.Count())
	}
}

func TestRegistryJoinMovesBetweenRooms(t *testing.T) {
	reg := newTestRegistry(t)
	a, _ := newTestSession(t, reg, "a", "alice")
	b, recB := newTestSession(t, reg, "b", "bob")

	mustJoin(t, reg, b, "Lobby")
	mustJoin(t, reg, a, "Lobby")
	mustJoin(t, reg, a, "testRoom1")

	lobby, _ := reg.Directory().FindByName("Lobby")
	room1, _ := reg.Directory().FindByName("testRoom1")
	if lobby.contains(a) || !room1.contains(a) {
		t.Fatalf("alice should only be in testRoom1")
	}
	if a.Room() != room1 {
		t.Fatalf("current room = %v, want testRoom1", a.Room())
	}
	if recB.Count("[alice left the room]") != 1 {
		t.Fatalf("bob lines = %q", recB.Lines())
	}
}

func TestRegistryJoinFailures(t *testing.T) {
	reg := newTestRegistry(t)
	s, _ := newTestSession(t, reg, "s", "")
	mustJoin(t, reg, s, "testRoom2")

	if reg.JoinRoom(s, "nowhere") {
		t.Fatalf("join of unknown room succeeded")
	}
	if s.Room() == nil || s.Room().Name() != "testRoom2" {
		t.Fatalf("failed join must not change membership")
	}

	for i := range 5 {
		other, _ := newTestSession(t, reg, fmt.Sprintf("o%d", i), "")
		mustJoin(t, reg, other, "Lobby")
	}
	if reg.JoinRoom(s, "Lobby") {
		t.Fatalf("join of full room succeeded")
	}
	if s.Room() == nil || s.Room().Name() != "testRoom2" {
		t.Fatalf("failed join must not leave the current room")
	}
	lobby, _ := reg.Directory().FindByName("Lobby")
	if lobby.Size() != 5 {
		t.Fatalf("lobby size = %d, want 5", lobby.Size())
	}
}

func TestRegistryLeaveRoom(t *testing.T) {
	reg := newTestRegistry(t)
	s, _ := newTestSession(t, reg, "s", "")

	if _, ok := reg.LeaveRoom(s); ok {
		t.Fatalf("leave while unjoined succeeded")
	}
	mustJoin(t, reg, s, "testRoom4")
	room, ok := reg.LeaveRoom(s)
	if !ok || room.Name() != "testRoom4" {
		t.Fatalf("leave = %v, %v", room, ok)
	}
	if s.Room() != nil || room.Size() != 0 {
		t.Fatalf("session still in room after leave")
	}
}

func TestRegistryUnregisterUnwindsMembership(t *testing.T) {
	reg := newTestRegistry(t)
	a, _ := newTestSession(t, reg, "a", "alice")
	b, recB := newTestSession(t, reg, "b", "bob")
	mustJoin(t, reg, a, "Lobby")
	mustJoin(t, reg, b, "Lobby")
	recB.Reset()

	if !reg.Unregister(a) {
		t.Fatalf("unregister failed")
	}
	if reg.Unregister(a) {
		t.Fatalf("second unregister should return false")
	}

	lobby, _ := reg.Directory().FindByName("Lobby")
	if lobby.contains(a) {
		t.Fatalf("unregistered session still in room")
	}
	if _, ok := reg.lookup("a"); ok {
		t.Fatalf("unregistered session still in registry")
	}
	if !a.Closed() || a.Room() != nil {
		t.Fatalf("session should be closed and unjoined")
	}
	if a.Send("late") {
		t.Fatalf("closed session accepted a line")
	}
	if reg.JoinRoom(a, "Lobby") {
		t.Fatalf("closed session joined a room")
	}
	if recB.Count("[alice left the room]") != 1 {
		t.Fatalf("bob lines = %q", recB.Lines())
	}

	// The id is free again.
	newTestSession(t, reg, "a", "")
}

func TestRegistrySessionsAndRooms(t *testing.T) {
	reg := newTestRegistry(t)
	a, _ := newTestSession(t, reg, "a", "alice")
	newTestSession(t, reg, "b", "bob")
	mustJoin(t, reg, a, "testRoom3")

	sessions := reg.Sessions()
	if len(sessions) != 2 {
		t.Fatalf("sessions = %+v", sessions)
	}
	byID := map[string]SessionInfo{}
	for _, s := range sessions {
		byID[s.ID] = s
	}
	if byID["a"].Room != "testRoom3" || byID["a"].Name != "alice" || byID["b"].Room != "" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}

	rooms := reg.Rooms()
	if len(rooms) != 5 || rooms[3].Name != "testRoom3" || len(rooms[3].Members) != 1 {
		t.Fatalf("unexpected rooms: %+v", rooms)
	}

	if s, ok := reg.FindByName("ALICE"); !ok || s != a {
		t.Fatalf("find by name failed")
	}
}

func TestRegistryConcurrentJoinsRespectCapacity(t *testing.T) {
	reg := newTestRegistry(t)
	const joiners = 40

	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range joiners {
		s, _ := newTestSession(t, reg, fmt.Sprintf("s%d", i), "")
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if reg.JoinRoom(s, "Lobby") {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	lobby, _ := reg.Directory().FindByName("Lobby")
	if wins.Load() != 5 || lobby.Size() != 5 {
		t.Fatalf("wins = %d, size = %d, want 5", wins.Load(), lobby.Size())
	}
}

func TestRegistrySessionNeverInTwoRooms(t *testing.T) {
	reg := newTestRegistry(t)
	names := reg.Directory().Names()

	const movers = 8
	sessions := make([]*Session, 0, movers)
	for i := range movers {
		s, _ := newTestSession(t, reg, fmt.Sprintf("m%d", i), fmt.Sprintf("mover%d", i))
		sessions = append(sessions, s)
	}

	done := make(chan struct{})
	var observer sync.WaitGroup
	observer.Add(1)
	go func() {
		defer observer.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			seen := map[string]int{}
			for _, room := range reg.Rooms() {
				for _, m := range room.Members {
					seen[m]++
				}
			}
			for name, n := range seen {
				if n > 1 {
					t.Errorf("%s visible in %d rooms", name, n)
					return
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			for range 200 {
				if rand.IntN(5) == 0 {
					reg.LeaveRoom(s)
					continue
				}
				reg.JoinRoom(s, names[rand.IntN(len(names))])
			}
		}(s)
	}
	wg.Wait()
	close(done)
	observer.Wait()

	for _, s := range sessions {
		count := 0
		for _, room := range reg.Directory().All() {
			if room.contains(s) {
				count++
			}
		}
		if count > 1 {
			t.Fatalf("%s is in %d rooms", s.ID(), count)
		}
		if current := s.Room(); current != nil && !current.contains(s) {
			t.Fatalf("%s current room %s does not list it", s.ID(), current.Name())
		}
		if count == 1 && s.Room() == nil {
			t.Fatalf("%s is a member but has no current room", s.ID())
		}
	}
}

func TestRegistryConcurrentUnregisterAndJoin(t *testing.T) {
	reg := newTestRegistry(t)
	var wg sync.WaitGroup
	for i := range 20 {
		s, _ := newTestSession(t, reg, fmt.Sprintf("u%d", i), "")
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.JoinRoom(s, "testRoom1")
		}()
		go func() {
			defer wg.Done()
			reg.Unregister(s)
		}()
	}
	wg.Wait()

	if reg.Count() != 0 {
		t.Fatalf("count = %d, want 0", reg.Count())
	}
	for _, room := range reg.Directory().All() {
		if room.Size() != 0 {
			t.Fatalf("room %s still has %d members", room.Name(), room.Size())
		}
	}
}
