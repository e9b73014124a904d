/*
Package profile derives per-user interest profiles from search history.

Pipeline:

	QueryEvents       -> Segment -> AggregateQueries -+
	                                                   +-> Rebuild -> storage.Profile
	InteractionEvents -------------> AggregateClicks -+

Query tokens are scored per session with a repetition boost, exponential
recency decay and a flat boost for sessions that are still active. Clicked
URLs are reduced to "domain/first-segment" keys and scored per event with a
rank weight in place of the repetition boost. The two score maps are merged
with configurable weights, keys matching an exclusion or an explicit keyword
are dropped, and the result is written as a full profile document.

Explicit interests and exclusions are edited through the Service methods in
interests.go. Rebuilds and edits for one user are serialized by a per-user
lock; writers in other processes remain last-write-wins.
*/
package profile

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// wordPattern matches runs of Unicode letters, digits and underscores.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// schemePrefixes mark tokens that are URL fragments rather than words.
var schemePrefixes = []string{"http", "https", "ftp", "www"}

// stopWords holds function words and generic search/web vocabulary.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a about above after again against all am an and any are as at be
		because been before being below between both but by can could did do
		does doing down during each few for from further had has have having
		he her here hers him his how i if in into is it its itself just me
		more most my no nor not now of off on once only or other our ours out
		over own same she should so some such than that the their theirs them
		then there these they this those through to too under until up very
		was we were what when where which while who whom why will with would
		you your yours
		search searches searching find page pages site sites website web
		online result results http https www com org net html htm php aspx
		best top free near vs via get info`) {
		stopWords[w] = struct{}{}
	}
}

// DiscardCounter counts discarded tokens by their literal text. It feeds the
// stop-word tuning diagnostics and never affects scoring.
type DiscardCounter map[string]int

// Tokenize lowercases text and returns its word tokens in order, dropping
// URL-scheme fragments, all-digit tokens, tokens shorter than two runes and
// stop words. Each dropped token is counted in discards when it is non-nil.
func Tokenize(text string, discards DiscardCounter) []string {
	raw := wordPattern.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if discarded(tok) {
			if discards != nil {
				discards[tok]++
			}
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func discarded(tok string) bool {
	if utf8.RuneCountInString(tok) < 2 {
		return true
	}
	for _, p := range schemePrefixes {
		if strings.HasPrefix(tok, p) {
			return true
		}
	}
	if isNumeric(tok) {
		return true
	}
	_, stop := stopWords[tok]
	return stop
}

func isNumeric(tok string) bool {
	for _, r := range tok {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}
