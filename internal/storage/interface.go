/*
Package storage implements the persistent store for search events and user profiles.

This package provides SQLite-based storage for query events, click/feedback
interactions, per-user profile documents and the discarded-token diagnostics
counter. Profiles are stored as whole JSON documents keyed by user id and are
always written with a full overwrite.

The database uses modernc.org/sqlite (a pure Go, CGo-free implementation).
*/
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotInitialized is returned when an operation runs before Init succeeded.
var ErrNotInitialized = errors.New("storage not initialized")

// Storage defines the interface for persistent storage operations.
type Storage interface {
	// Init initializes the database and runs migrations.
	Init() error

	// RecordQuery stores a query event.
	RecordQuery(ctx context.Context, event QueryEvent) error

	// RecordInteraction stores an interaction event. Feedback entries replace
	// earlier feedback for the same (user, url) pair.
	RecordInteraction(ctx context.Context, event InteractionEvent) error

	// QueriesForUser returns a user's query events, oldest first.
	QueriesForUser(ctx context.Context, userID string) ([]QueryEvent, error)

	// InteractionsForUser returns a user's interaction events, oldest first.
	InteractionsForUser(ctx context.Context, userID string) ([]InteractionEvent, error)

	// GetProfile returns the stored profile, or nil if the user has none.
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	// UpsertProfile overwrites the whole profile document for its user.
	UpsertProfile(ctx context.Context, profile *Profile) error

	// DistinctUsers lists every user id with events or a stored profile.
	DistinctUsers(ctx context.Context) ([]string, error)

	// IncrementDiscardedTokens adds counts to the discarded-token diagnostics.
	IncrementDiscardedTokens(ctx context.Context, counts map[string]int) error

	// TopDiscardedTokens returns the most frequently discarded tokens.
	TopDiscardedTokens(ctx context.Context, limit int) ([]TokenCount, error)

	// Cleanup removes events older than the retention window. Profiles are kept.
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)

	// Close closes the database connection.
	Close() error
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	mu       sync.Mutex
	initOnce sync.Once
	initErr  error
}

// NewStorage creates a new SQLite storage instance at dbPath.
// The parent directory is created on Init if it does not exist.
func NewStorage(dbPath string) *SQLiteStorage {
	return &SQLiteStorage{dbPath: dbPath}
}

// DefaultPath returns ~/.persona-search/persona.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".persona-search", "persona.db"), nil
}

// Init initializes the database and runs migrations.
func (s *SQLiteStorage) Init() error {
	s.initOnce.Do(func() {
		if dir := filepath.Dir(s.dbPath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				s.initErr = fmt.Errorf("failed to create db directory: %w", err)
				return
			}
		}

		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			s.initErr = fmt.Errorf("failed to open database: %w", err)
			return
		}

		// A single connection keeps sqlite writes serialized and lets
		// in-memory databases survive across calls.
		db.SetMaxOpenConns(1)

		if err := db.Ping(); err != nil {
			db.Close()
			s.initErr = fmt.Errorf("failed to ping database: %w", err)
			return
		}
		s.db = db

		if err := s.runMigrations(); err != nil {
			s.initErr = fmt.Errorf("failed to run migrations: %w", err)
			return
		}
	})

	return s.initErr
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}

// conn returns the open database or ErrNotInitialized. Callers hold s.mu.
func (s *SQLiteStorage) conn() (*sql.DB, error) {
	if s.db == nil || s.initErr != nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}
