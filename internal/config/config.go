/*
Package config handles loading and saving persona-search configuration.

Configuration is layered with koanf. Later layers override earlier ones:

 1. Built-in defaults (Default)
 2. Optional YAML file (--config flag, PERSONA_SEARCH_CONFIG, or
    ~/.persona-search/config.yaml when present)
 3. Environment variables prefixed PERSONA_SEARCH_, with "__" separating
    the section from the key:

	PERSONA_SEARCH_SERVER__PORT=9090          -> server.port
	PERSONA_SEARCH_PROFILE__CLICK_WEIGHT=3    -> profile.click_weight
	PERSONA_SEARCH_EXPANSION__ENABLED=false   -> expansion.enabled

Example YAML:

	server:
	  port: 8080
	profile:
	  session_window_minutes: 30
	rebuild:
	  interval: 3m
	cache:
	  ttl_seconds: 3600
	  backend: badger
*/
package config

import (
	"time"
)

// Config represents the root configuration structure.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Logging   LoggingConfig   `koanf:"logging"`
	Profile   ProfileConfig   `koanf:"profile"`
	Rebuild   RebuildConfig   `koanf:"rebuild"`
	Cache     CacheConfig     `koanf:"cache"`
	Expansion ExpansionConfig `koanf:"expansion"`
	Search    SearchConfig    `koanf:"search"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host string `koanf:"host" validate:"required"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0s"`

	// JWTSecret verifies HS256 bearer tokens. Empty treats every request as guest.
	JWTSecret string `koanf:"jwt_secret"`

	// CORSAllowedOrigins enables CORS for browser clients. Empty disables it.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// RateLimitRequests per user (or client IP for guests) per RateLimitWindow.
	// Zero disables rate limiting.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=0s"`
}

// StorageConfig locates the sqlite database.
type StorageConfig struct {
	// Path defaults to ~/.persona-search/persona.db when empty.
	Path string `koanf:"path"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error disabled off"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// ProfileConfig holds the interest scoring knobs.
type ProfileConfig struct {
	// SessionWindowMinutes is the largest gap between events of one session.
	SessionWindowMinutes float64 `koanf:"session_window_minutes" validate:"gt=0"`

	// SessionDecayMinutes is how recent a session's last event must be to get the boost.
	SessionDecayMinutes float64 `koanf:"session_decay_minutes" validate:"gte=0"`

	// SessionBoost multiplies scores of recent sessions.
	SessionBoost float64 `koanf:"session_boost" validate:"gte=0"`

	// RecencyDecayDays is the horizon of exp(-age/horizon).
	RecencyDecayDays float64 `koanf:"recency_decay_days" validate:"gt=0"`

	QueryWeight float64 `koanf:"query_weight" validate:"gte=0"`
	ClickWeight float64 `koanf:"click_weight" validate:"gte=0"`

	// RankWeightFloor is the minimum click rank weight.
	RankWeightFloor float64 `koanf:"rank_weight_floor" validate:"gte=0,lte=1"`
}

// RebuildConfig configures the periodic profile rebuild.
type RebuildConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval" validate:"gte=1s"`
}

// CacheConfig configures the expansion cache.
type CacheConfig struct {
	// TTLSeconds of 0 disables caching.
	TTLSeconds int `koanf:"ttl_seconds" validate:"gte=0"`

	// Backend is memory or badger.
	Backend string `koanf:"backend" validate:"oneof=memory badger"`

	// Path is the badger directory. Defaults next to the database.
	Path string `koanf:"path"`
}

// TTL returns the cache TTL as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// ExpansionConfig configures LLM query expansion.
type ExpansionConfig struct {
	Enabled     bool          `koanf:"enabled"`
	URL         string        `koanf:"url" validate:"omitempty,url"`
	Model       string        `koanf:"model" validate:"required"`
	Temperature float64       `koanf:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `koanf:"timeout" validate:"gte=0s"`

	TopKExplicit int `koanf:"top_k_explicit" validate:"gte=0"`
	TopKImplicit int `koanf:"top_k_implicit" validate:"gte=0"`

	// Rune caps for the snippet, the full system prompt and the seed query.
	MaxSnippetChars int `koanf:"max_snippet_chars" validate:"gt=0"`
	MaxPromptChars  int `koanf:"max_prompt_chars" validate:"gt=0"`
	MaxSeedChars    int `koanf:"max_seed_chars" validate:"gt=0"`

	// RequestsPerSecond throttles outbound calls. 0 means unlimited.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`
}

// SearchConfig configures the web search provider and the local index.
type SearchConfig struct {
	Endpoint   string        `koanf:"endpoint" validate:"omitempty,url"`
	APIKey     string        `koanf:"api_key"`
	CX         string        `koanf:"cx"`
	NumResults int           `koanf:"num_results" validate:"min=1,max=10"`
	Timeout    time.Duration `koanf:"timeout" validate:"gte=0s"`

	// IndexPath is the bleve index directory. Defaults next to the database.
	IndexPath string `koanf:"index_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout:   10 * time.Second,
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Profile: ProfileConfig{
			SessionWindowMinutes: 30,
			SessionDecayMinutes:  480,
			SessionBoost:         1.5,
			RecencyDecayDays:     30,
			QueryWeight:          1.0,
			ClickWeight:          2.0,
			RankWeightFloor:      0.1,
		},
		Rebuild: RebuildConfig{
			Enabled:  true,
			Interval: 3 * time.Minute,
		},
		Cache: CacheConfig{
			TTLSeconds: 3600,
			Backend:    "memory",
		},
		Expansion: ExpansionConfig{
			Enabled:           true,
			URL:               "http://localhost:11434",
			Model:             "llama3.1",
			Temperature:       0.4,
			Timeout:           30 * time.Second,
			TopKExplicit:      5,
			TopKImplicit:      5,
			MaxSnippetChars:   400,
			MaxPromptChars:    1200,
			MaxSeedChars:      256,
			RequestsPerSecond: 5,
		},
		Search: SearchConfig{
			Endpoint:   "https://www.googleapis.com/customsearch/v1",
			NumResults: 5,
			Timeout:    10 * time.Second,
		},
	}
}
