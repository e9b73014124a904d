/*
Package learning records search events in the background.

Search requests and result interactions are queued without blocking the
caller and written to storage in small batches by a single goroutine, so
events for one user reach the store in the order they were tracked.
*/
package learning

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/khanglvm/persona-search/internal/storage"
)

// EventKind tells which half of an Event is set.
type EventKind int

const (
	KindQuery EventKind = iota
	KindInteraction
)

// Event is a queued query or interaction.
type Event struct {
	Kind        EventKind
	Query       storage.QueryEvent
	Interaction storage.InteractionEvent
}

// UserID returns the user the event belongs to.
func (e Event) UserID() string {
	if e.Kind == KindInteraction {
		return e.Interaction.UserID
	}
	return e.Query.UserID
}

// NewQueryEvent creates a query event with a fresh id. An empty user id
// becomes the guest user.
func NewQueryEvent(userID, rawText, enhancedText string, at time.Time) storage.QueryEvent {
	return storage.QueryEvent{
		ID:           uuid.NewString(),
		UserID:       effectiveUser(userID),
		RawText:      rawText,
		EnhancedText: enhancedText,
		Timestamp:    at,
	}
}

// NewInteractionEvent creates an interaction event with a fresh id. An empty
// action defaults to a click.
func NewInteractionEvent(userID, queryID, clickedURL string, rank int, action storage.ActionType, at time.Time) storage.InteractionEvent {
	if action == "" {
		action = storage.ActionClick
	}
	return storage.InteractionEvent{
		ID:         uuid.NewString(),
		UserID:     effectiveUser(userID),
		QueryID:    queryID,
		ClickedURL: clickedURL,
		Rank:       rank,
		Timestamp:  at,
		ActionType: action,
	}
}

func effectiveUser(userID string) string {
	if strings.TrimSpace(userID) == "" {
		return storage.GuestUserID
	}
	return userID
}
