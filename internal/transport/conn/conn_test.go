package conn

import (
	"context"
	"io"
	"net"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/store"
	"github.com/vovakirdan/linechat-server/internal/store/sqlite"
)

type fakeConn struct {
	in     chan string
	closed chan struct{}
	once   sync.Once

	mu  sync.Mutex
	out []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan string, 16), closed: make(chan struct{})}
}

func (f *fakeConn) ReadLine(context.Context) (string, error) {
	select {
	case line, ok := <-f.in:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-f.closed:
		return "", net.ErrClosed
	}
}

func (f *fakeConn) WriteLine(_ context.Context, line string) error {
	select {
	case <-f.closed:
		return net.ErrClosed
	default:
	}
	f.mu.Lock()
	f.out = append(f.out, line)
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) RemoteAddr() string { return "127.0.0.1:40000" }

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.out)
}

func (f *fakeConn) has(line string) bool {
	return slices.Contains(f.lines(), line)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestHandler(t *testing.T, ledger store.Ledger, cfg Config) (*Handler, *core.Registry) {
	t.Helper()

	dir, err := core.NewDirectory(core.DefaultRooms())
	if err != nil {
		t.Fatalf("new directory: %v", err)
	}
	reg := core.NewRegistry(dir, nil)
	if cfg.SendBuffer == 0 {
		cfg.SendBuffer = 64
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = time.Second
	}
	return NewHandler(reg, ledger, cfg, nil), reg
}

func serve(ctx context.Context, h *Handler, id string, c Conn) <-chan error {
	done := make(chan error, 1)
	go func() { done <- h.Serve(ctx, store.TransportTCP, id, c) }()
	return done
}

func wait(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("serve did not return")
	}
}

func TestServeHandshakeAndQuit(t *testing.T) {
	h, reg := newTestHandler(t, nil, Config{})
	c := newFakeConn()
	done := serve(context.Background(), h, "Client-1", c)

	c.in <- "alice"
	waitFor(t, "greeting", func() bool { return c.has("You automatically joined the Lobby room!") })

	got := c.lines()
	if got[0] != core.PromptUsername || got[1] != "Hello alice! You are now connected to the chat server." {
		t.Fatalf("unexpected handshake lines: %q", got[:2])
	}

	c.in <- "/quit"
	wait(t, done)

	if !c.has("Goodbye!") {
		t.Fatalf("goodbye not flushed: %q", c.lines())
	}
	if reg.Count() != 0 {
		t.Fatalf("session still registered")
	}
}

func TestServeDisconnectUnwindsMembership(t *testing.T) {
	h, reg := newTestHandler(t, nil, Config{})
	ctx := context.Background()

	a := newFakeConn()
	doneA := serve(ctx, h, "a", a)
	a.in <- "alice"
	waitFor(t, "alice greeting", func() bool { return a.has("You automatically joined the Lobby room!") })

	b := newFakeConn()
	doneB := serve(ctx, h, "b", b)
	b.in <- "bob"

	waitFor(t, "bob joined notice", func() bool { return a.has("[bob joined the room]") })

	a.in <- "a|2025-09-23 12:00:00|TEXT|hi bob"
	waitFor(t, "text delivery", func() bool { return b.has("alice: hi bob") })
	waitFor(t, "echo", func() bool { return a.has("[You]: hi bob") })

	close(a.in)
	wait(t, doneA)
	waitFor(t, "left notice", func() bool { return b.has("[alice left the room]") })

	lobby, _ := reg.Directory().FindByName(core.LobbyRoom)
	if got := lobby.MemberNames(); !slices.Equal(got, []string{"bob"}) {
		t.Fatalf("lobby members = %q", got)
	}

	b.Close()
	wait(t, doneB)
	if reg.Count() != 0 || lobby.Size() != 0 {
		t.Fatalf("registry not empty after disconnects")
	}
}

func TestServeRateLimit(t *testing.T) {
	h, _ := newTestHandler(t, nil, Config{RateLimitPerMinute: 2})
	c := newFakeConn()
	done := serve(context.Background(), h, "c1", c)

	c.in <- "carol"
	c.in <- "/who"
	c.in <- "/who"
	c.in <- "/who"
	waitFor(t, "rate limit notice", func() bool { return c.has(core.NoticeRateLimited) })

	c.Close()
	wait(t, done)
}

func TestServeDuplicateIDGetsSuffix(t *testing.T) {
	h, reg := newTestHandler(t, nil, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := newFakeConn()
	doneFirst := serve(ctx, h, "Client-9", first)
	waitFor(t, "first registered", func() bool { return reg.Count() == 1 })

	second := newFakeConn()
	doneSecond := serve(ctx, h, "Client-9", second)
	waitFor(t, "second registered", func() bool { return reg.Count() == 2 })

	ids := make([]string, 0, 2)
	for _, info := range reg.Sessions() {
		ids = append(ids, info.ID)
	}
	if !slices.Contains(ids, "Client-9") {
		t.Fatalf("ids = %q", ids)
	}
	suffixed := 0
	for _, id := range ids {
		if strings.HasPrefix(id, "Client-9-") {
			suffixed++
		}
	}
	if suffixed != 1 {
		t.Fatalf("ids = %q, want one suffixed id", ids)
	}

	cancel()
	wait(t, doneFirst)
	wait(t, doneSecond)
	if reg.Count() != 0 {
		t.Fatalf("sessions left after cancel: %d", reg.Count())
	}
}

func TestServeSlowWriterDisconnects(t *testing.T) {
	h, reg := newTestHandler(t, nil, Config{SendBuffer: 1, WriteTimeout: 10 * time.Millisecond})
	c := &stuckConn{fakeConn: newFakeConn()}
	done := serve(context.Background(), h, "slow", c)

	c.in <- "slowpoke"
	wait(t, done)
	if reg.Count() != 0 {
		t.Fatalf("slow session not removed")
	}
}

// stuckConn never completes a write.
type stuckConn struct {
	*fakeConn
}

func (s *stuckConn) WriteLine(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestServeRecordsLedger(t *testing.T) {
	ledger, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	defer ledger.Close()

	h, _ := newTestHandler(t, ledger, Config{})
	c := newFakeConn()
	done := serve(context.Background(), h, "Client-42", c)
	c.in <- "dave"
	c.in <- "/exit"
	wait(t, done)

	rows, err := ledger.RecentSessions(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent sessions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.SessionID != "Client-42" || row.Name != "dave" || row.Transport != store.TransportTCP || row.Open() {
		t.Fatalf("unexpected ledger row: %+v", row)
	}
	if row.RemoteAddr != "127.0.0.1:40000" {
		t.Fatalf("remote addr = %q", row.RemoteAddr)
	}
}
