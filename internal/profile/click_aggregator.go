package profile

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/khanglvm/persona-search/internal/storage"
)

// DomainKey reduces a link to "domain/first-path-segment". The host is
// lowercased and a leading "www." dropped; an empty path yields the bare
// domain. Links without a scheme ("a.com/p") are accepted. Unparseable links
// return "".
func DomainKey(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if !strings.Contains(link, "://") {
		link = "http://" + link
	}

	u, err := url.Parse(link)
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "" {
		return ""
	}

	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			return host + "/" + seg
		}
	}
	return host
}

// AggregateClicks scores clicked domain keys per event as
// RankWeight * recency(event age) * sessionBoost(event time), summed per key.
// Negative feedback contributes nothing. It also returns the sorted keys.
func AggregateClicks(events []storage.InteractionEvent, now time.Time, p Params) (map[string]float64, []string) {
	scores := make(map[string]float64)

	for _, e := range events {
		if e.ActionType == storage.ActionNegativeFeedback {
			continue
		}
		key := DomainKey(e.ClickedURL)
		if key == "" {
			continue
		}
		scores[key] += RankWeight(e.Rank, p.RankWeightFloor) *
			p.recency(ageDays(now, e.Timestamp)) *
			p.sessionBoost(now, e.Timestamp)
	}

	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return scores, keys
}
