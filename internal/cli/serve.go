package cli

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanglvm/persona-search/internal/api"
	"github.com/khanglvm/persona-search/internal/cache"
	"github.com/khanglvm/persona-search/internal/config"
	"github.com/khanglvm/persona-search/internal/expansion"
	"github.com/khanglvm/persona-search/internal/identity"
	"github.com/khanglvm/persona-search/internal/learning"
	"github.com/khanglvm/persona-search/internal/logging"
	"github.com/khanglvm/persona-search/internal/profile"
	"github.com/khanglvm/persona-search/internal/search"
	"github.com/khanglvm/persona-search/internal/storage"
	"github.com/khanglvm/persona-search/internal/supervisor"
)

// NewServeCmd creates the 'serve' command that runs the HTTP API and the
// periodic profile rebuild under one supervisor.
func NewServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the personalized search HTTP server",
		Long: `Start the HTTP API together with the background profile rebuild.

The server answers search requests with profile-aware query expansion and
reranking, records queries and interactions, and exposes profile management
endpoints. Profiles of every known user are rebuilt on the configured
interval (rebuild.interval, default 3m).

Press Ctrl+C to shut down gracefully.`,
		Example: `  persona-search serve
  persona-search serve --port 9090
  persona-search serve --config ./persona-search.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			return runServe(cmd, cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override server.port")

	return cmd
}

// app holds the wired runtime components.
type app struct {
	store    *storage.SQLiteStorage
	tracker  *learning.Tracker
	index    *search.LocalIndex
	profiles *profile.Service
	search   *search.Service
	closers  []func() error
}

// Close releases resources in reverse order. The tracker drains before the
// store closes.
func (a *app) Close() error {
	var errs []error
	if a.tracker != nil {
		a.tracker.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildApp wires storage, cache, expansion, search and tracking from cfg.
func buildApp(cfg *config.Config) (*app, error) {
	store, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{store: store, closers: []func() error{store.Close}}

	cacheStore, closeCache, err := openCacheStore(cfg.Cache)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closeCache != nil {
		a.closers = append(a.closers, closeCache)
	}

	index, err := search.OpenLocalIndex(cfg.Search.IndexPath)
	if err != nil {
		logging.Warn().Err(err).Str("path", cfg.Search.IndexPath).Msg("failed to open local index, falling back to memory")
		if index, err = search.NewLocalIndex(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create local index: %w", err)
		}
	}
	a.index = index
	a.closers = append(a.closers, index.Close)

	var gen expansion.Generator
	if cfg.Expansion.Enabled {
		gen = expansion.NewOllamaClient(cfg.Expansion)
	}
	expander := expansion.NewExpander(
		gen,
		cache.New(cacheStore, cfg.Cache.TTL()),
		store,
		expansion.NewPersonalizer(cfg.Expansion),
		cfg.Expansion.Model,
		cfg.Expansion.Temperature,
	)

	a.tracker = learning.NewTracker(store)
	a.profiles = profile.NewService(store, profile.ParamsFromConfig(cfg.Profile))
	a.search = search.NewService(search.NewGoogleClient(cfg.Search), index, expander, a.tracker, store)

	return a, nil
}

// openCacheStore returns the configured expansion cache backend and its closer.
func openCacheStore(cfg config.CacheConfig) (cache.Store, func() error, error) {
	if cfg.Backend != "badger" {
		return cache.NewMemoryStore(), nil, nil
	}
	store, err := cache.OpenBadgerStore(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open expansion cache: %w", err)
	}
	return store, store.Close, nil
}

// runServe starts the supervisor tree and blocks until a shutdown signal.
func runServe(cmd *cobra.Command, cfg *config.Config) error {
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.Error().Err(err).Msg("error during cleanup")
		}
	}()

	server := api.NewServer(api.Deps{
		Search:   a.search,
		Profiles: a.profiles,
		Tracker:  a.tracker,
		Resolver: identity.NewJWTResolver(cfg.Server.JWTSecret),

		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RateLimit:          cfg.Server.RateLimitRequests,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
	})

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout + 5*time.Second
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeCfg)
	tree.AddWorker(supervisor.NewRebuildService(a.profiles, a.store, cfg.Rebuild.Interval, cfg.Rebuild.Enabled))
	tree.AddAPI(supervisor.NewHTTPService(httpServer, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("addr", httpServer.Addr).
		Bool("expansion", cfg.Expansion.Enabled).
		Bool("rebuild", cfg.Rebuild.Enabled).
		Dur("rebuild_interval", cfg.Rebuild.Interval).
		Msg("starting persona-search")

	err = tree.Serve(ctx)
	if ctx.Err() != nil {
		logging.Info().Msg("shutdown complete")
		return nil
	}
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
