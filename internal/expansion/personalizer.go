/*
Package expansion turns a short user query into a detailed search query with
an LLM, biased by the user's interest profile.

The Personalizer selects the strongest explicit and implicit interests and
renders them into a bounded snippet for the system prompt. The Expander wraps
the model call with the expansion cache and falls back to the seed text when
the model fails or returns nothing.
*/
package expansion

import (
	"sort"
	"strings"

	"github.com/khanglvm/persona-search/internal/config"
	"github.com/khanglvm/persona-search/internal/storage"
)

// BasePrompt is the instruction sent with every expansion request.
const BasePrompt = "You expand short user queries into a single detailed search query. " +
	"Keep it one line, clear, and specific (entities, synonyms/aliases in " +
	"parentheses, dates/regions, helpful keywords). Return ONLY the expanded query."

const contextLead = " When expanding the query, consider the following user interest context (apply only when relevant): "

// minKeepRatio is the share of the budget a whitespace cut must keep.
const minKeepRatio = 0.6

// Personalizer renders profile context for the expansion prompt.
type Personalizer struct {
	TopKExplicit    int
	TopKImplicit    int
	MaxSnippetChars int
	MaxPromptChars  int
	MaxSeedChars    int
}

// DefaultPersonalizer returns 5/5 interests and 400/1200/256 rune caps.
func DefaultPersonalizer() Personalizer {
	return NewPersonalizer(config.Default().Expansion)
}

// NewPersonalizer builds a Personalizer from config.
func NewPersonalizer(c config.ExpansionConfig) Personalizer {
	return Personalizer{
		TopKExplicit:    c.TopKExplicit,
		TopKImplicit:    c.TopKImplicit,
		MaxSnippetChars: c.MaxSnippetChars,
		MaxPromptChars:  c.MaxPromptChars,
		MaxSeedChars:    c.MaxSeedChars,
	}
}

// TopK returns the strongest explicit keywords by weight and implicit keys by
// score. Ties keep their stored order.
func (p Personalizer) TopK(profile *storage.Profile) (explicit, implicit []string) {
	if profile == nil {
		return nil, nil
	}

	ex := make([]storage.ExplicitInterest, len(profile.ExplicitInterests))
	copy(ex, profile.ExplicitInterests)
	sort.SliceStable(ex, func(i, j int) bool { return ex[i].Weight > ex[j].Weight })
	for _, e := range ex {
		if len(explicit) >= p.TopKExplicit {
			break
		}
		if strings.TrimSpace(e.Keyword) == "" {
			continue
		}
		explicit = append(explicit, e.Keyword)
	}

	im := make(storage.InterestScores, len(profile.ImplicitInterests))
	copy(im, profile.ImplicitInterests)
	sort.SliceStable(im, func(i, j int) bool { return im[i].Score > im[j].Score })
	for _, e := range im {
		if len(implicit) >= p.TopKImplicit {
			break
		}
		implicit = append(implicit, e.Key)
	}

	return explicit, implicit
}

// Snippet renders "Explicit = a, b; Implicit = c" capped at MaxSnippetChars.
// An empty group renders as "none"; a profile with no interests yields "".
func (p Personalizer) Snippet(profile *storage.Profile) string {
	explicit, implicit := p.TopK(profile)
	if len(explicit) == 0 && len(implicit) == 0 {
		return ""
	}
	s := "Explicit = " + joinOrNone(explicit) + "; Implicit = " + joinOrNone(implicit)
	return Truncate(s, p.MaxSnippetChars)
}

// SystemPrompt composes BasePrompt with the profile snippet, capped at
// MaxPromptChars. Without a snippet it is BasePrompt alone.
func (p Personalizer) SystemPrompt(profile *storage.Profile) string {
	snippet := p.Snippet(profile)
	if snippet == "" {
		return Truncate(BasePrompt, p.MaxPromptChars)
	}
	return Truncate(BasePrompt+contextLead+snippet, p.MaxPromptChars)
}

// Seed normalizes and caps a user query.
func (p Personalizer) Seed(q string) string {
	return Truncate(q, p.MaxSeedChars)
}

func joinOrNone(words []string) string {
	if len(words) == 0 {
		return "none"
	}
	return strings.Join(words, ", ")
}

// Truncate collapses whitespace runs to single spaces and caps s at limit
// runes. Unless the cut already ends a word, it moves back to the last space
// when that keeps at least 60% of the limit. A limit <= 0 only collapses
// whitespace.
func Truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if limit <= 0 {
		return s
	}

	r := []rune(s)
	if len(r) <= limit {
		return s
	}

	cut := r[:limit]
	if r[limit] == ' ' {
		return strings.TrimRight(string(cut), " ")
	}
	for i := len(cut) - 1; i >= 0; i-- {
		if cut[i] == ' ' {
			if float64(i) >= float64(limit)*minKeepRatio {
				cut = cut[:i]
			}
			break
		}
	}
	return strings.TrimRight(string(cut), " ")
}
