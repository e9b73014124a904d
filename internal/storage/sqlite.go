/*
Package storage provides SQLite database migrations and helper functions.

This file contains schema definitions, migration logic, and timestamp
serialization utilities for the storage layer.
*/
package storage

import (
	"fmt"
	"time"

	"github.com/khanglvm/persona-search/internal/logging"
)

// timeLayout is used for every stored timestamp. Fixed-width nanoseconds keep
// lexical order equal to chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// runMigrations executes database schema migrations.
func (s *SQLiteStorage) runMigrations() error {
	if s.db == nil {
		return ErrNotInitialized
	}

	// Create migrations table
	if err := s.createMigrationsTable(); err != nil {
		return err
	}

	// Get current version
	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		return err
	}

	// Run migrations in order
	migrations := []migration{
		{version: 1, name: "initial_schema", up: s.migration001InitialSchema},
		{version: 2, name: "discarded_tokens", up: s.migration002DiscardedTokens},
	}

	for _, m := range migrations {
		if version < m.version {
			logging.Info().Int("version", m.version).Str("name", m.name).Msg("running migration")
			if err := m.up(); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			if err := s.setMigrationVersion(m.version, m.name); err != nil {
				return err
			}
		}
	}

	return nil
}

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

// createMigrationsTable creates the schema_migrations table.
func (s *SQLiteStorage) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`
	_, err := s.db.Exec(query)
	return err
}

// getCurrentMigrationVersion returns the highest applied migration version.
func (s *SQLiteStorage) getCurrentMigrationVersion() (int, error) {
	query := "SELECT COALESCE(MAX(version), 0) FROM schema_migrations"
	row := s.db.QueryRow(query)

	var version int
	if err := row.Scan(&version); err != nil {
		return 0, err
	}

	return version, nil
}

// setMigrationVersion records a migration as applied.
func (s *SQLiteStorage) setMigrationVersion(version int, name string) error {
	query := "INSERT INTO schema_migrations (version, name) VALUES (?, ?)"
	_, err := s.db.Exec(query, version, name)
	return err
}

// migration001InitialSchema creates the event and profile tables.
func (s *SQLiteStorage) migration001InitialSchema() error {
	statements := []struct {
		what string
		sql  string
	}{
		{"queries table", `
			CREATE TABLE IF NOT EXISTS queries (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				raw_text TEXT NOT NULL,
				enhanced_text TEXT,
				timestamp TEXT NOT NULL
			)`},
		{"queries user index", `
			CREATE INDEX IF NOT EXISTS idx_queries_user_ts
			ON queries(user_id, timestamp)`},
		{"interactions table", `
			CREATE TABLE IF NOT EXISTS interactions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				query_id TEXT NOT NULL,
				clicked_url TEXT NOT NULL,
				result_rank INTEGER NOT NULL,
				timestamp TEXT NOT NULL,
				action_type TEXT NOT NULL DEFAULT 'click'
			)`},
		{"interactions user index", `
			CREATE INDEX IF NOT EXISTS idx_interactions_user_ts
			ON interactions(user_id, timestamp)`},
		{"interactions feedback index", `
			CREATE INDEX IF NOT EXISTS idx_interactions_user_url
			ON interactions(user_id, clicked_url, action_type)`},
		{"user_profiles table", `
			CREATE TABLE IF NOT EXISTS user_profiles (
				user_id TEXT PRIMARY KEY,
				document TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`},
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt.sql); err != nil {
			return fmt.Errorf("failed to create %s: %w", stmt.what, err)
		}
	}

	return nil
}

// migration002DiscardedTokens creates the stop-word tuning counter table.
func (s *SQLiteStorage) migration002DiscardedTokens() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS discarded_tokens (
			token TEXT PRIMARY KEY,
			count INTEGER NOT NULL DEFAULT 0,
			last_seen TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create discarded_tokens table: %w", err)
	}
	return nil
}

// formatTime converts a timestamp to its stored form (UTC).
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a stored timestamp, accepting plain RFC3339 as well.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
