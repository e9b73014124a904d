package profile

import (
	"sort"
	"time"

	"github.com/khanglvm/persona-search/internal/storage"
)

// AggregateQueries scores query tokens. For every session each token scores
// count * repetitionBoost(count) * recency(mean session age) * sessionBoost,
// and session scores are summed. It also returns every distinct token seen,
// sorted. Discarded tokens are counted in discards when it is non-nil.
func AggregateQueries(events []storage.QueryEvent, now time.Time, p Params, discards DiscardCounter) (map[string]float64, []string) {
	scores := make(map[string]float64)

	for _, session := range Segment(events, p.SessionWindow) {
		counts := make(map[string]int)
		order := []string{}
		var totalAge float64

		for _, e := range session.Events {
			totalAge += ageDays(now, e.Timestamp)
			for _, tok := range Tokenize(e.RawText, discards) {
				if counts[tok] == 0 {
					order = append(order, tok)
				}
				counts[tok]++
			}
		}

		meanAge := totalAge / float64(len(session.Events))
		weight := p.recency(meanAge) * p.sessionBoost(now, session.Latest())

		for _, tok := range order {
			c := counts[tok]
			scores[tok] += float64(c) * repetitionBoost(c) * weight
		}
	}

	seen := make([]string, 0, len(scores))
	for tok := range scores {
		seen = append(seen, tok)
	}
	sort.Strings(seen)

	return scores, seen
}
