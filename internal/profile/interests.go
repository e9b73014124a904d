package profile

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/khanglvm/persona-search/internal/storage"
)

// WeightUpdate is one entry of a bulk explicit-interest update.
type WeightUpdate struct {
	Keyword string  `json:"keyword" validate:"required"`
	Weight  float64 `json:"weight" validate:"gte=0,lte=1"`
}

// Promote adds keyword as an explicit interest and purges it from the
// exclusions and the implicit interests. A keyword that is already explicit
// (ignoring case) fails with ErrDuplicateKeyword.
func (s *Service) Promote(ctx context.Context, userID, keyword string, weight float64) (*storage.Profile, error) {
	keyword, err := cleanKeyword(keyword)
	if err != nil {
		return nil, err
	}
	if err := checkWeight(weight); err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, func(p *storage.Profile) error {
		for _, e := range p.ExplicitInterests {
			if SameKeyword(e.Keyword, keyword) {
				return fmt.Errorf("%w: %s", ErrDuplicateKeyword, keyword)
			}
		}
		p.ExplicitInterests = append(p.ExplicitInterests, storage.ExplicitInterest{
			Keyword:     keyword,
			Weight:      weight,
			LastUpdated: s.now(),
		})
		purgeImplicit(p, keyword)
		return nil
	})
}

// UpdateExplicit applies weights in bulk. Existing keywords get the new
// weight and timestamp; unknown keywords are appended and purged from the
// implicit side as in Promote. The whole batch is validated first.
func (s *Service) UpdateExplicit(ctx context.Context, userID string, updates []WeightUpdate) (*storage.Profile, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no updates", ErrBadInput)
	}
	cleaned := make([]WeightUpdate, len(updates))
	for i, u := range updates {
		kw, err := cleanKeyword(u.Keyword)
		if err != nil {
			return nil, err
		}
		if err := checkWeight(u.Weight); err != nil {
			return nil, err
		}
		cleaned[i] = WeightUpdate{Keyword: kw, Weight: u.Weight}
	}

	return s.mutate(ctx, userID, func(p *storage.Profile) error {
		now := s.now()
		for _, u := range cleaned {
			found := false
			for i := range p.ExplicitInterests {
				if SameKeyword(p.ExplicitInterests[i].Keyword, u.Keyword) {
					p.ExplicitInterests[i].Weight = u.Weight
					p.ExplicitInterests[i].LastUpdated = now
					found = true
					break
				}
			}
			if !found {
				p.ExplicitInterests = append(p.ExplicitInterests, storage.ExplicitInterest{
					Keyword:     u.Keyword,
					Weight:      u.Weight,
					LastUpdated: now,
				})
				purgeImplicit(p, u.Keyword)
			}
		}
		return nil
	})
}

// RemoveExplicit deletes keyword from the explicit interests. The keyword
// comes back as an implicit interest only at the next rebuild.
func (s *Service) RemoveExplicit(ctx context.Context, userID, keyword string) (*storage.Profile, error) {
	keyword, err := cleanKeyword(keyword)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, func(p *storage.Profile) error {
		kept := p.ExplicitInterests[:0]
		for _, e := range p.ExplicitInterests {
			if !SameKeyword(e.Keyword, keyword) {
				kept = append(kept, e)
			}
		}
		p.ExplicitInterests = kept
		return nil
	})
}

// Exclude adds keyword to the exclusions unless an equal keyword (ignoring
// case) is already there. Implicit interests are filtered at the next rebuild.
func (s *Service) Exclude(ctx context.Context, userID, keyword string) (*storage.Profile, error) {
	keyword, err := cleanKeyword(keyword)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, func(p *storage.Profile) error {
		if NewKeywordSet(p.ImplicitExclusions...).Has(keyword) {
			return nil
		}
		p.ImplicitExclusions = append(p.ImplicitExclusions, keyword)
		return nil
	})
}

// Unexclude removes keyword from the exclusions, ignoring case.
func (s *Service) Unexclude(ctx context.Context, userID, keyword string) (*storage.Profile, error) {
	keyword, err := cleanKeyword(keyword)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, func(p *storage.Profile) error {
		p.ImplicitExclusions = removeFolded(p.ImplicitExclusions, keyword)
		return nil
	})
}

// mutate runs fn on the stored profile (or a new one) under the user lock and
// writes the result back.
func (s *Service) mutate(ctx context.Context, userID string, fn func(p *storage.Profile) error) (*storage.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrBadInput)
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for %s: %w", userID, err)
	}
	if p == nil {
		p = storage.NewProfile(userID)
	}

	if err := fn(p); err != nil {
		return nil, err
	}

	if err := s.store.UpsertProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save profile for %s: %w", userID, err)
	}
	return p, nil
}

// purgeImplicit drops keyword from the exclusions and the implicit interests.
func purgeImplicit(p *storage.Profile, keyword string) {
	p.ImplicitExclusions = removeFolded(p.ImplicitExclusions, keyword)

	target := Fold(keyword)
	kept := p.ImplicitInterests[:0]
	for _, e := range p.ImplicitInterests {
		if Fold(e.Key) != target {
			kept = append(kept, e)
		}
	}
	p.ImplicitInterests = kept
}

func removeFolded(words []string, keyword string) []string {
	target := Fold(keyword)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if Fold(w) != target {
			kept = append(kept, w)
		}
	}
	return kept
}

func cleanKeyword(keyword string) (string, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return "", fmt.Errorf("%w: keyword is required", ErrBadInput)
	}
	return keyword, nil
}

func checkWeight(w float64) error {
	if math.IsNaN(w) || w < 0 || w > 1 {
		return fmt.Errorf("%w: weight %v outside [0, 1]", ErrBadInput, w)
	}
	return nil
}
