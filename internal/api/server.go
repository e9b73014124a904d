/*
Package api exposes search, interaction logging and profile management over
HTTP.

Routes:

	GET    /search?q=                       expanded, reranked web search
	POST   /interactions                    log a click or feedback
	GET    /profiles/me                     rebuild and return the caller's profile
	GET    /profiles/{user_id}              rebuild and return a profile
	POST   /profiles/explicit/add           promote a keyword
	PUT    /profiles/explicit/bulk_update   set explicit weights in bulk
	DELETE /profiles/explicit/remove        drop an explicit keyword
	DELETE /profiles/implicit/remove        exclude a keyword and rebuild
	POST   /profiles/implicit/restore       lift an exclusion and rebuild
	GET    /healthz, /metrics

The acting user is the bearer token's subject. Guests may name a user_id in
the request body.
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/khanglvm/persona-search/internal/identity"
	"github.com/khanglvm/persona-search/internal/logging"
	"github.com/khanglvm/persona-search/internal/profile"
	"github.com/khanglvm/persona-search/internal/search"
	"github.com/khanglvm/persona-search/internal/storage"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// InteractionTracker records interaction events.
type InteractionTracker interface {
	TrackInteraction(e storage.InteractionEvent)
}

// Deps are the collaborators behind the handlers.
type Deps struct {
	Search   *search.Service
	Profiles *profile.Service
	Tracker  InteractionTracker
	Resolver identity.Resolver
	Now      func() time.Time

	// CORSAllowedOrigins enables CORS for the listed origins. Empty disables it.
	CORSAllowedOrigins []string

	// RateLimit is the request budget per client IP and RateLimitWindow.
	// Zero disables rate limiting.
	RateLimit       int
	RateLimitWindow time.Duration
}

// Server holds the HTTP handlers.
type Server struct {
	search   *search.Service
	profiles *profile.Service
	tracker  InteractionTracker
	resolver identity.Resolver
	validate *validator.Validate
	now      func() time.Time
	origins  []string
	limit    int
	window   time.Duration
	log      zerolog.Logger
}

// NewServer creates a server from deps.
func NewServer(d Deps) *Server {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	resolver := d.Resolver
	if resolver == nil {
		resolver = identity.NewJWTResolver("")
	}
	return &Server{
		search:   d.Search,
		profiles: d.Profiles,
		tracker:  d.Tracker,
		resolver: resolver,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      now,
		origins:  d.CORSAllowedOrigins,
		limit:    d.RateLimit,
		window:   d.RateLimitWindow,
		log:      logging.Component("api"),
	}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.RequestSize(maxBodyBytes))
	if len(s.origins) > 0 {
		r.Use(corsMiddleware(s.origins))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.identityMiddleware)
		if s.limit > 0 {
			r.Use(rateLimitMiddleware(s.limit, s.window))
		}

		r.Get("/search", s.handleSearch)
		r.Post("/interactions", s.handleInteraction)

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/me", s.handleGetMyProfile)
			r.Post("/explicit/add", s.handleAddExplicit)
			r.Put("/explicit/bulk_update", s.handleBulkUpdate)
			r.Delete("/explicit/remove", s.handleRemoveExplicit)
			r.Delete("/implicit/remove", s.handleExclude)
			r.Post("/implicit/restore", s.handleRestore)
			r.Get("/{user_id}", s.handleGetProfile)
		})
	})

	return r
}
