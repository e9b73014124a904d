package expansion

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/khanglvm/persona-search/internal/cache"
	"github.com/khanglvm/persona-search/internal/logging"
	"github.com/khanglvm/persona-search/internal/metrics"
	"github.com/khanglvm/persona-search/internal/storage"
)

// ProfileSource loads stored profiles. storage.Storage satisfies it.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID string) (*storage.Profile, error)
}

// Expander runs cache-gated, profile-aware expansion.
type Expander struct {
	gen          Generator
	cache        *cache.Cache
	profiles     ProfileSource
	personalizer Personalizer
	model        string
	temperature  float64
	log          zerolog.Logger
}

// ExpanderOption configures an Expander.
type ExpanderOption func(*Expander)

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) ExpanderOption {
	return func(e *Expander) { e.log = l }
}

// NewExpander creates an Expander. A nil gen disables expansion and a nil
// cache disables caching.
func NewExpander(gen Generator, c *cache.Cache, profiles ProfileSource, p Personalizer, model string, temperature float64, opts ...ExpanderOption) *Expander {
	e := &Expander{
		gen:          gen,
		cache:        c,
		profiles:     profiles,
		personalizer: p,
		model:        model,
		temperature:  temperature,
		log:          logging.Component("expansion"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand returns the expanded query for seed. Any model failure or empty
// output yields the normalized seed, and the outcome is cached either way
// unless ctx ended first.
func (e *Expander) Expand(ctx context.Context, seed, userID string) string {
	seed = e.personalizer.Seed(strings.TrimSpace(seed))
	if seed == "" {
		return ""
	}
	if e.gen == nil {
		return seed
	}

	key := cache.Key(seed, e.model, e.temperature)
	if e.cache != nil && e.cache.Enabled() {
		v, ok := e.cache.Get(key)
		metrics.RecordCacheLookup(ok)
		if ok {
			e.log.Debug().Str("seed", seed).Msg("expansion cache hit")
			return v
		}
	}

	expanded := e.generate(ctx, seed, e.systemPrompt(ctx, userID))

	if e.cache != nil && ctx.Err() == nil {
		e.cache.Set(key, expanded)
	}
	return expanded
}

func (e *Expander) generate(ctx context.Context, seed, system string) string {
	raw, err := e.gen.Generate(ctx, GenerateRequest{
		Model:       e.model,
		Temperature: e.temperature,
		System:      system,
		Prompt:      seed,
	})
	if err != nil && ctx.Err() != nil {
		metrics.ExpansionFallbacks.WithLabelValues("canceled").Inc()
		e.log.Debug().Err(err).Str("seed", seed).Msg("expansion abandoned by caller, using seed")
		return seed
	}
	if err != nil {
		metrics.ExpansionFallbacks.WithLabelValues("error").Inc()
		e.log.Warn().Err(err).Str("seed", seed).Msg("expansion failed, using seed")
		return seed
	}

	out := strings.Join(strings.Fields(raw), " ")
	if out == "" {
		metrics.ExpansionFallbacks.WithLabelValues("empty").Inc()
		e.log.Warn().Str("seed", seed).Msg("expansion returned nothing, using seed")
		return seed
	}

	e.log.Info().Str("seed", seed).Str("expanded", out).Msg("query expanded")
	return out
}

func (e *Expander) systemPrompt(ctx context.Context, userID string) string {
	if userID == "" || e.profiles == nil {
		return e.personalizer.SystemPrompt(nil)
	}
	p, err := e.profiles.GetProfile(ctx, userID)
	if err != nil {
		e.log.Warn().Err(err).Str("user_id", userID).Msg("failed to load profile for expansion")
		return e.personalizer.SystemPrompt(nil)
	}
	return e.personalizer.SystemPrompt(p)
}
