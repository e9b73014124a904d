package profile

import (
	"sort"
	"time"

	"github.com/khanglvm/persona-search/internal/storage"
)

// Session is a run of query events with no gap larger than the session window.
type Session struct {
	Events []storage.QueryEvent
}

// Latest returns the timestamp of the session's last event.
func (s Session) Latest() time.Time {
	return s.Events[len(s.Events)-1].Timestamp
}

// Segment groups events into sessions. Events are ordered by timestamp first
// (stable, so equal timestamps keep their input order). A gap strictly larger
// than window starts a new session.
func Segment(events []storage.QueryEvent, window time.Duration) []Session {
	if len(events) == 0 {
		return nil
	}

	sorted := make([]storage.QueryEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	sessions := []Session{{Events: []storage.QueryEvent{sorted[0]}}}
	for _, e := range sorted[1:] {
		cur := &sessions[len(sessions)-1]
		if e.Timestamp.Sub(cur.Latest()) > window {
			sessions = append(sessions, Session{Events: []storage.QueryEvent{e}})
			continue
		}
		cur.Events = append(cur.Events, e)
	}
	return sessions
}
