/*
Package storage provides data models for search events and user profiles.

These models represent recorded queries, click and feedback interactions, and
the per-user profile document consumed by query expansion and reranking.
*/
package storage

import (
	"bytes"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// GuestUserID is the pseudo-user for unauthenticated requests.
const GuestUserID = "guest"

// QueryEvent represents a single search request.
type QueryEvent struct {
	// ID is a unique identifier for this query (UUID).
	ID string `json:"id"`

	// UserID is the user who issued the query, or "guest".
	UserID string `json:"user_id"`

	// RawText is what the user typed.
	RawText string `json:"raw_text"`

	// EnhancedText is the expanded query sent to search, if any.
	EnhancedText string `json:"enhanced_text,omitempty"`

	// Timestamp is when the query was issued.
	Timestamp time.Time `json:"timestamp"`
}

// ActionType classifies an interaction event.
type ActionType string

const (
	ActionClick            ActionType = "click"
	ActionPositiveFeedback ActionType = "positive_feedback"
	ActionNegativeFeedback ActionType = "negative_feedback"
)

// Valid reports whether a is a known action type.
func (a ActionType) Valid() bool {
	switch a {
	case ActionClick, ActionPositiveFeedback, ActionNegativeFeedback:
		return true
	}
	return false
}

// IsFeedback reports whether a is one of the mutually exclusive feedback kinds.
func (a ActionType) IsFeedback() bool {
	return a == ActionPositiveFeedback || a == ActionNegativeFeedback
}

// InteractionEvent represents a click or feedback on a search result.
type InteractionEvent struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	QueryID    string     `json:"query_id"`
	ClickedURL string     `json:"clicked_url"`
	Rank       int        `json:"rank"`
	Timestamp  time.Time  `json:"timestamp"`
	ActionType ActionType `json:"action_type"`
}

// ExplicitInterest is a user-declared keyword with a weight in [0, 1].
type ExplicitInterest struct {
	Keyword     string    `json:"keyword"`
	Weight      float64   `json:"weight"`
	LastUpdated time.Time `json:"last_updated"`
}

// InterestScore is one implicit interest entry.
type InterestScore struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
}

// InterestScores is an implicit interest mapping kept in presentation order:
// score descending, then key ascending. It serializes as a JSON object whose
// members appear in that order.
type InterestScores []InterestScore

// SortScores orders scores by score descending, breaking ties by key.
func SortScores(scores InterestScores) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Key < scores[j].Key
	})
}

// Get returns the score stored for key.
func (s InterestScores) Get(key string) (float64, bool) {
	for _, e := range s {
		if e.Key == key {
			return e.Score, true
		}
	}
	return 0, false
}

// Map returns the scores as a plain map.
func (s InterestScores) Map() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, e := range s {
		out[e.Key] = e.Score
	}
	return out
}

// MarshalJSON writes the entries as an ordered JSON object.
func (s InterestScores) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(e.Score, 'g', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object and restores presentation order.
func (s *InterestScores) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(InterestScores, 0, len(raw))
	for k, v := range raw {
		out = append(out, InterestScore{Key: k, Score: v})
	}
	SortScores(out)
	*s = out
	return nil
}

// Profile is the per-user interest document.
type Profile struct {
	UserID             string             `json:"user_id"`
	ExplicitInterests  []ExplicitInterest `json:"explicit_interests"`
	ImplicitInterests  InterestScores     `json:"implicit_interests"`
	ImplicitExclusions []string           `json:"implicit_exclusions"`
	QueryHistory       []string           `json:"query_history"`
	ClickHistory       []string           `json:"click_history"`
	LastUpdated        time.Time          `json:"last_updated"`
}

// NewProfile returns an empty profile with non-nil collections.
func NewProfile(userID string) *Profile {
	return &Profile{
		UserID:             userID,
		ExplicitInterests:  []ExplicitInterest{},
		ImplicitInterests:  InterestScores{},
		ImplicitExclusions: []string{},
		QueryHistory:       []string{},
		ClickHistory:       []string{},
	}
}

// TokenCount is a discarded-token diagnostics row.
type TokenCount struct {
	Token string `json:"token"`
	Count int64  `json:"count"`
}
