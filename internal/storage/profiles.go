package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// GetProfile loads the profile document for userID. It returns (nil, nil)
// when the user has no stored profile.
func (s *SQLiteStorage) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var document string
	err = db.QueryRowContext(ctx,
		"SELECT document FROM user_profiles WHERE user_id = ?", userID,
	).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	profile := NewProfile(userID)
	if err := json.Unmarshal([]byte(document), profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", userID, err)
	}
	normalizeProfile(profile)

	return profile, nil
}

// UpsertProfile replaces the stored document for profile.UserID.
func (s *SQLiteStorage) UpsertProfile(ctx context.Context, profile *Profile) error {
	if profile == nil || profile.UserID == "" {
		return errors.New("profile requires a user id")
	}

	document, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	updated := profile.LastUpdated
	if updated.IsZero() {
		updated = time.Now()
	}

	if _, err := db.ExecContext(ctx, `
		INSERT OR REPLACE INTO user_profiles (user_id, document, updated_at)
		VALUES (?, ?, ?)
	`, profile.UserID, string(document), formatTime(updated)); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}

// DistinctUsers returns every user id seen in events or profiles, sorted.
func (s *SQLiteStorage) DistinctUsers(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT user_id FROM queries
		UNION SELECT user_id FROM interactions
		UNION SELECT user_id FROM user_profiles
		ORDER BY user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, userID)
	}

	return users, rows.Err()
}

// normalizeProfile replaces nil collections left by a sparse document.
func normalizeProfile(p *Profile) {
	if p.ExplicitInterests == nil {
		p.ExplicitInterests = []ExplicitInterest{}
	}
	if p.ImplicitInterests == nil {
		p.ImplicitInterests = InterestScores{}
	}
	if p.ImplicitExclusions == nil {
		p.ImplicitExclusions = []string{}
	}
	if p.QueryHistory == nil {
		p.QueryHistory = []string{}
	}
	if p.ClickHistory == nil {
		p.ClickHistory = []string{}
	}
}
