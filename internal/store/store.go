// Package store provides the durable record store for agents, tasks, and
// activity events, backed by SQLite. It is the single source of truth:
// every mutation is written through to disk before the call returns, and
// a coarse reader/writer lock keeps concurrent callers consistent.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/pkg/types"
)

// DefaultRetentionCap bounds the activity log; oldest events are evicted
// first once the global count exceeds it.
const DefaultRetentionCap = 1000

// Store provides access to the agentdeck database.
type Store struct {
	path         string
	retentionCap int
	logger       *zap.Logger

	mu sync.RWMutex
	db *sql.DB
}

// NewStore creates a Store for the given database file. A retentionCap of
// zero selects DefaultRetentionCap.
func NewStore(path string, retentionCap int, logger *zap.Logger) *Store {
	if retentionCap <= 0 {
		retentionCap = DefaultRetentionCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:         path,
		retentionCap: retentionCap,
		logger:       logger,
	}
}

// Initialize opens the database, creating it and its schema if needed.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return types.WrapError(types.KindPersistenceFailure, err, "failed to create data directory")
	}

	db, err := sql.Open("sqlite3", s.path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return types.WrapError(types.KindPersistenceFailure, err, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return types.WrapError(types.KindPersistenceFailure, err, "failed to ping database")
	}

	s.db = db

	if err := s.initSchema(); err != nil {
		db.Close()
		s.db = nil
		return err
	}

	s.logger.Info("record store initialized", zap.String("path", s.path))
	return nil
}

// initSchema creates the tables if they do not exist.
func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			framework TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			current_task_id TEXT,
			created_at TEXT NOT NULL,
			last_activity TEXT,
			config TEXT NOT NULL DEFAULT '{}',
			stats TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			title TEXT NOT NULL,
			instruction TEXT NOT NULL,
			status TEXT NOT NULL,
			priority TEXT NOT NULL,
			created_at TEXT NOT NULL,
			started_at TEXT,
			completed_at TEXT,
			result TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			task_id TEXT,
			event_type TEXT NOT NULL,
			summary TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			timestamp TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_agent ON tasks(agent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_agent ON events(agent_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return types.WrapError(types.KindPersistenceFailure, err, "failed to init schema")
		}
	}

	return nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return types.WrapError(types.KindPersistenceFailure, err, "failed to close database")
		}
		s.db = nil
	}
	return nil
}

// Path returns the location of the database file.
func (s *Store) Path() string {
	return s.path
}

// timeLayout pads nanoseconds so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime renders a timestamp for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// formatTimePtr renders an optional timestamp for storage.
func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// parseTime parses a stored timestamp; zero on failure.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseTimeNull parses an optional stored timestamp.
func parseTimeNull(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

// persistErr wraps a database error as a persistence failure.
func persistErr(err error, format string, args ...interface{}) error {
	return types.WrapError(types.KindPersistenceFailure, err, fmt.Sprintf(format, args...))
}
