package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/khanglvm/persona-search/internal/logging"
)

// RecordQuery records a query event.
func (s *SQLiteStorage) RecordQuery(ctx context.Context, event QueryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO queries (id, user_id, raw_text, enhanced_text, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	if _, err := db.ExecContext(ctx, query,
		event.ID,
		event.UserID,
		event.RawText,
		nullString(event.EnhancedText),
		formatTime(event.Timestamp),
	); err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}

	return nil
}

// RecordInteraction records an interaction event.
//
// A feedback entry deletes earlier feedback entries for the same user and URL
// in the same transaction, so at most one feedback row exists per pair.
func (s *SQLiteStorage) RecordInteraction(ctx context.Context, event InteractionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	if event.ActionType == "" {
		event.ActionType = ActionClick
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if event.ActionType.IsFeedback() {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM interactions
			WHERE user_id = ? AND clicked_url = ? AND action_type IN (?, ?)
		`, event.UserID, event.ClickedURL, string(ActionPositiveFeedback), string(ActionNegativeFeedback)); err != nil {
			return fmt.Errorf("failed to clear previous feedback: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO interactions (id, user_id, query_id, clicked_url, result_rank, timestamp, action_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		event.UserID,
		event.QueryID,
		event.ClickedURL,
		event.Rank,
		formatTime(event.Timestamp),
		string(event.ActionType),
	); err != nil {
		return fmt.Errorf("failed to record interaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit interaction: %w", err)
	}
	return nil
}

// QueriesForUser retrieves all query events for a user, oldest first.
func (s *SQLiteStorage) QueriesForUser(ctx context.Context, userID string) ([]QueryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, raw_text, enhanced_text, timestamp
		FROM queries
		WHERE user_id = ?
		ORDER BY timestamp ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []QueryEvent{}
	for rows.Next() {
		var event QueryEvent
		var enhanced sql.NullString
		var timestampStr string

		if err := rows.Scan(&event.ID, &event.UserID, &event.RawText, &enhanced, &timestampStr); err != nil {
			logging.Warn().Err(err).Msg("failed to scan query row")
			continue
		}

		event.EnhancedText = enhanced.String
		event.Timestamp, err = parseTime(timestampStr)
		if err != nil {
			logging.Warn().Err(err).Str("id", event.ID).Msg("failed to parse query timestamp")
			continue
		}

		events = append(events, event)
	}

	return events, rows.Err()
}

// InteractionsForUser retrieves all interaction events for a user, oldest first.
func (s *SQLiteStorage) InteractionsForUser(ctx context.Context, userID string) ([]InteractionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, query_id, clicked_url, result_rank, timestamp, action_type
		FROM interactions
		WHERE user_id = ?
		ORDER BY timestamp ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	events := []InteractionEvent{}
	for rows.Next() {
		var event InteractionEvent
		var timestampStr, action string

		if err := rows.Scan(
			&event.ID,
			&event.UserID,
			&event.QueryID,
			&event.ClickedURL,
			&event.Rank,
			&timestampStr,
			&action,
		); err != nil {
			logging.Warn().Err(err).Msg("failed to scan interaction row")
			continue
		}

		event.ActionType = ActionType(action)
		event.Timestamp, err = parseTime(timestampStr)
		if err != nil {
			logging.Warn().Err(err).Str("id", event.ID).Msg("failed to parse interaction timestamp")
			continue
		}

		events = append(events, event)
	}

	return events, rows.Err()
}

// Cleanup removes events older than the retention window and returns the
// number of deleted rows. Profiles are never deleted here.
func (s *SQLiteStorage) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return 0, err
	}

	cutoff := formatTime(time.Now().Add(-retention))

	var deleted int64
	for _, table := range []string{"queries", "interactions"} {
		res, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE timestamp < ?", cutoff)
		if err != nil {
			return deleted, fmt.Errorf("failed to cleanup %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		deleted += n
	}

	// Vacuum to reclaim space
	if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
		logging.Warn().Err(err).Msg("failed to vacuum database")
	}

	return deleted, nil
}

// nullString maps an empty string to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
