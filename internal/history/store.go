// Package history keeps a local record of lookups in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/v0xg/dictfocus/internal/sequencer"
	_ "modernc.org/sqlite"
)

// Outcome values stored per lookup
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Entry is one recorded lookup
type Entry struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id"`
	Text       string    `json:"text"`
	Special    bool      `json:"special"`
	Outcome    string    `json:"outcome"`
	FailedStep string    `json:"failed_step,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// Current schema version - bump when the lookups table changes
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS lookups (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT NOT NULL,
    text TEXT NOT NULL,
    special INTEGER NOT NULL DEFAULT 0,
    outcome TEXT NOT NULL,
    failed_step TEXT NOT NULL DEFAULT '',
    error TEXT NOT NULL DEFAULT '',
    started_at INTEGER NOT NULL,      -- UnixNano
    duration_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lookups_started ON lookups(started_at);
`

// Store is a SQLite-backed lookup log
type Store struct {
	db *sql.DB
}

// Open opens or creates the store at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Writes are rare; one connection avoids SQLITE_BUSY between pooled conns.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if err := checkSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func checkSchema(db *sql.DB) error {
	var version int
	err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("history schema version %d is newer than supported %d", version, schemaVersion)
	}
	return nil
}

// Record appends an entry
func (s *Store) Record(ctx context.Context, e Entry) error {
	special := 0
	if e.Special {
		special = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookups (request_id, text, special, outcome, failed_step, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID, e.Text, special, e.Outcome, e.FailedStep, e.Error, e.StartedAt.UnixNano(), e.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("record lookup: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, text, special, outcome, failed_step, error, started_at, duration_ms
		FROM lookups
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query lookups: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var special int
		var started int64
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Text, &special, &e.Outcome, &e.FailedStep, &e.Error, &started, &e.DurationMS); err != nil {
			return nil, fmt.Errorf("scan lookup: %w", err)
		}
		e.Special = special == 1
		e.StartedAt = time.Unix(0, started)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// NewEntry describes a finished (or failed) sequence run
func NewEntry(requestID, text string, started time.Time, elapsed time.Duration, runErr error) Entry {
	e := Entry{
		RequestID:  requestID,
		Text:       text,
		Special:    sequencer.IsSpecial(text),
		Outcome:    OutcomeOK,
		StartedAt:  started,
		DurationMS: elapsed.Milliseconds(),
	}
	if runErr != nil {
		e.Outcome = OutcomeFailed
		e.Error = runErr.Error()
		var aerr *sequencer.AutomationError
		if errors.As(runErr, &aerr) {
			e.FailedStep = string(aerr.Step)
			e.Error = aerr.Err.Error()
		}
	}
	return e
}
