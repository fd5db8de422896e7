package tcp

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newDisabledLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// listenAddr waits for Serve to publish its listener.
func (s *Server) listenAddr(t *testing.T) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if addr := s.Addr(); addr != nil {
			return addr.String()
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("listener not ready")
	return ""
}
