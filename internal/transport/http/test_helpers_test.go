package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/config"
	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/store"
	"github.com/vovakirdan/linechat-server/internal/store/sqlite"
	"github.com/vovakirdan/linechat-server/internal/transport/conn"
)

type testEnv struct {
	ts     *httptest.Server
	reg    *core.Registry
	ledger *sqlite.SQLiteStore
}

// createTestLedger creates an in-memory SQLite ledger with schema applied.
func createTestLedger(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema)
	if err != nil {
		t.Fatalf("failed to create test ledger: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func startTestServer(t *testing.T, withLedger bool) *testEnv {
	t.Helper()

	dir, err := core.NewDirectory(core.DefaultRooms())
	if err != nil {
		t.Fatalf("new directory: %v", err)
	}
	reg := core.NewRegistry(dir, nil)

	env := &testEnv{reg: reg}
	var ledger store.Ledger
	if withLedger {
		env.ledger = createTestLedger(t)
		ledger = env.ledger
	}

	disabledLogger := zerolog.Nop()
	cfg := config.Default()
	cfg.ReadHeaderTimeout = time.Second
	conns := conn.NewHandler(reg, ledger, conn.Config{SendBuffer: 64, WriteTimeout: time.Second}, &disabledLogger)

	ctx, cancel := context.WithCancel(context.Background())
	server := NewServer(ctx, reg, ledger, conns, &cfg, &disabledLogger)

	env.ts = httptest.NewUnstartedServer(server.Handler)
	env.ts.Config.BaseContext = server.BaseContext
	env.ts.Start()
	t.Cleanup(func() {
		cancel()
		conns.Wait()
		env.ts.Close()
	})
	return env
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
