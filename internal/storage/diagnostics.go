package storage

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// IncrementDiscardedTokens adds counts to the discarded-token table in one
// transaction. Tokens are written in sorted order.
func (s *SQLiteStorage) IncrementDiscardedTokens(ctx context.Context, counts map[string]int) error {
	if len(counts) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	tokens := make([]string, 0, len(counts))
	for token := range counts {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO discarded_tokens (token, count, last_seen)
		VALUES (?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET
			count = count + excluded.count,
			last_seen = excluded.last_seen
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	for _, token := range tokens {
		if counts[token] <= 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, token, counts[token], now); err != nil {
			return fmt.Errorf("failed to increment %q: %w", token, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit discarded tokens: %w", err)
	}
	return nil
}

// TopDiscardedTokens returns up to limit tokens ordered by count descending.
func (s *SQLiteStorage) TopDiscardedTokens(ctx context.Context, limit int) ([]TokenCount, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT token, count FROM discarded_tokens
		ORDER BY count DESC, token ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query discarded tokens: %w", err)
	}
	defer rows.Close()

	out := []TokenCount{}
	for rows.Next() {
		var tc TokenCount
		if err := rows.Scan(&tc.Token, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan discarded token: %w", err)
		}
		out = append(out, tc)
	}

	return out, rows.Err()
}
