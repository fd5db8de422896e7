package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/linechat-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id       TEXT NOT NULL,
	transport        TEXT NOT NULL,
	remote_addr      TEXT NOT NULL DEFAULT '',
	name             TEXT NOT NULL DEFAULT '',
	connected_at     DATETIME NOT NULL,
	disconnected_at  DATETIME
);

CREATE INDEX IF NOT EXISTS idx_sessions_session_id ON sessions(session_id, id DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_connected ON sessions(connected_at DESC);
`

// SQLiteStore implements store.Ledger for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Ledger = (*SQLiteStore)(nil)

// New opens the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// NewWithSetup opens the database and runs a setup function before the first
// ping. Tests use it with ":memory:".
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; ":memory:" requires it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// ApplySchema creates the ledger tables if they do not exist.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordConnect inserts a row for a new connection and sets rec.ID.
func (s *SQLiteStore) RecordConnect(ctx context.Context, rec *store.SessionRecord) error {
	query := `
		INSERT INTO sessions (session_id, transport, remote_addr, name, connected_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		rec.SessionID, rec.Transport, rec.RemoteAddr, rec.Name, rec.ConnectedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// RecordDisconnect closes the most recent open row of sessionID and stores the
// final display name.
func (s *SQLiteStore) RecordDisconnect(ctx context.Context, sessionID, name string, at time.Time) error {
	query := `
		UPDATE sessions
		SET disconnected_at = ?, name = ?
		WHERE id = (
			SELECT id FROM sessions
			WHERE session_id = ? AND disconnected_at IS NULL
			ORDER BY id DESC
			LIMIT 1
		)
	`
	result, err := s.db.ExecContext(ctx, query, at.UTC(), name, sessionID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RecentSessions returns up to limit rows, newest first.
func (s *SQLiteStore) RecentSessions(ctx context.Context, limit int) ([]*store.SessionRecord, error) {
	query := `
		SELECT id, session_id, transport, remote_addr, name, connected_at, disconnected_at
		FROM sessions
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []*store.SessionRecord
	for rows.Next() {
		var rec store.SessionRecord
		var disconnected sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Transport, &rec.RemoteAddr,
			&rec.Name, &rec.ConnectedAt, &disconnected); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if disconnected.Valid {
			t := disconnected.Time
			rec.DisconnectedAt = &t
		}
		out = append(out, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// CloseOpen marks every open row as disconnected. It is used at startup to
// close rows left behind by an unclean shutdown.
func (s *SQLiteStore) CloseOpen(ctx context.Context, at time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET disconnected_at = ? WHERE disconnected_at IS NULL`, at.UTC())
	if err != nil {
		return 0, fmt.Errorf("close open sessions: %w", err)
	}
	return result.RowsAffected()
}
