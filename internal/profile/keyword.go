package profile

import (
	"golang.org/x/text/cases"
)

// Keyword is the case-folded form of an interest keyword, exclusion or
// implicit key. Every case-insensitive comparison in this package goes
// through it.
type Keyword string

// Fold returns the folded form of s.
func Fold(s string) Keyword {
	// A Caser keeps state and must not be shared between goroutines.
	return Keyword(cases.Fold().String(s))
}

// SameKeyword reports whether a and b are equal after folding.
func SameKeyword(a, b string) bool {
	return Fold(a) == Fold(b)
}

// KeywordSet is a set of folded keywords.
type KeywordSet map[Keyword]struct{}

// NewKeywordSet folds words into a new set.
func NewKeywordSet(words ...string) KeywordSet {
	s := make(KeywordSet, len(words))
	for _, w := range words {
		s.Add(w)
	}
	return s
}

// Add inserts the folded form of w.
func (s KeywordSet) Add(w string) {
	s[Fold(w)] = struct{}{}
}

// Has reports whether w is in the set, ignoring case.
func (s KeywordSet) Has(w string) bool {
	_, ok := s[Fold(w)]
	return ok
}
