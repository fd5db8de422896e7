package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no open ledger row matches a session.
var ErrNotFound = errors.New("not found")

// Transport names recorded in the ledger.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "ws"
)

// SessionRecord is one connection in the session ledger.
type SessionRecord struct {
	ID             int64      `json:"-"`
	SessionID      string     `json:"session_id"`
	Transport      string     `json:"transport"`
	RemoteAddr     string     `json:"remote_addr"`
	Name           string     `json:"name"`
	ConnectedAt    time.Time  `json:"connected_at"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty"`
}

// Open reports whether the session is still connected.
func (r SessionRecord) Open() bool {
	return r.DisconnectedAt == nil
}

// Ledger is the audit trail of connections. Nothing about rooms or messages
// is persisted.
type Ledger interface {
	// RecordConnect inserts a row for a new connection.
	RecordConnect(ctx context.Context, rec *SessionRecord) error
	// RecordDisconnect closes the most recent open row of sessionID.
	RecordDisconnect(ctx context.Context, sessionID, name string, at time.Time) error
	// RecentSessions returns up to limit rows, newest first.
	RecentSessions(ctx context.Context, limit int) ([]*SessionRecord, error)
	// CloseOpen marks every open row as disconnected at the given time.
	CloseOpen(ctx context.Context, at time.Time) (int64, error)
	Close() error
}
