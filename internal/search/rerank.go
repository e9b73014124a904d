package search

import (
	"sort"
	"strings"

	"github.com/khanglvm/persona-search/internal/profile"
	"github.com/khanglvm/persona-search/internal/storage"
)

// Rerank orders results by positional score plus personal score, best first.
//
// The positional score of the result at index idx of N is (N-idx)/N. The
// personal score adds the interest weight of the result's domain key and of
// every title or snippet token that equals an interest key, case-insensitively.
// Ties keep their input order. A nil profile or one without a user id returns
// results unchanged.
func Rerank(results []Result, p *storage.Profile) []Result {
	if p == nil || strings.TrimSpace(p.UserID) == "" || len(results) == 0 {
		return results
	}

	interests := interestWeights(p)
	n := float64(len(results))

	out := make([]Result, len(results))
	for idx, r := range results {
		r.Score = (n-float64(idx))/n + personalScore(r, interests)
		out[idx] = r
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// interestWeights folds implicit scores and explicit weights into one map.
func interestWeights(p *storage.Profile) map[profile.Keyword]float64 {
	w := make(map[profile.Keyword]float64, len(p.ImplicitInterests)+len(p.ExplicitInterests))
	for _, s := range p.ImplicitInterests {
		w[profile.Fold(s.Key)] += s.Score
	}
	for _, e := range p.ExplicitInterests {
		w[profile.Fold(e.Keyword)] += e.Weight
	}
	return w
}

func personalScore(r Result, interests map[profile.Keyword]float64) float64 {
	if len(interests) == 0 {
		return 0
	}

	var score float64
	if key := profile.DomainKey(r.Link); key != "" {
		score += interests[profile.Fold(key)]
	}
	for _, tok := range profile.Tokenize(r.Title+" "+r.Snippet, nil) {
		score += interests[profile.Fold(tok)]
	}
	return score
}
