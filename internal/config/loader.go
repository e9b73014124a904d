package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every configuration environment variable.
	EnvPrefix = "PERSONA_SEARCH_"

	// ConfigPathEnvVar names a YAML file to load when --config is not given.
	ConfigPathEnvVar = "PERSONA_SEARCH_CONFIG"
)

// Load builds the configuration from defaults, an optional YAML file and the
// environment, then validates it. An empty path falls back to
// PERSONA_SEARCH_CONFIG and then to DefaultPath if that file exists. A path
// that was asked for but does not exist is a ConfigNotFoundError.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path == "" {
		path = existingDefaultPath()
	}
	if path != "" {
		if err := loadFile(k, path); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, &InvalidConfigError{
			Path:    path,
			Message: err.Error(),
			Hint:    "Check value types (durations look like 30s or 3m)",
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultPath returns ~/.persona-search/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".persona-search", "config.yaml"), nil
}

// existingDefaultPath returns DefaultPath when that file exists, else "".
func existingDefaultPath() string {
	path, err := DefaultPath()
	if err != nil {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// loadFile layers a YAML file over k with the file errors mapped to typed errors.
func loadFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ConfigNotFoundError{
				Path: path,
				Hint: "Run 'persona-search config init " + path + "' to create it",
			}
		}
		return fmt.Errorf("failed to access config: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return &PermissionError{
				Path:    path,
				Op:      "read",
				Fix:     getReadPermissionFix(path),
				Details: getPermissionDetails(path),
			}
		}
		return &InvalidConfigError{
			Path:    path,
			Message: fmt.Sprintf("YAML parse error: %v", err),
			Hint:    "Restore from .bak file if available",
		}
	}
	return nil
}

// envKey maps PERSONA_SEARCH_PROFILE__CLICK_WEIGHT to profile.click_weight.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	if s == "CONFIG" {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// resolvePaths fills empty storage paths with defaults under the data directory.
func (c *Config) resolvePaths() error {
	if c.Storage.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		c.Storage.Path = filepath.Join(home, ".persona-search", "persona.db")
	}

	dataDir := filepath.Dir(c.Storage.Path)
	if c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(dataDir, "expansion-cache")
	}
	if c.Search.IndexPath == "" {
		c.Search.IndexPath = filepath.Join(dataDir, "results.bleve")
	}
	return nil
}

// getReadPermissionFix returns platform-specific fix command
func getReadPermissionFix(path string) string {
	switch runtime.GOOS {
	case "windows":
		return fmt.Sprintf("Right-click %s > Properties > Security > Edit permissions", path)
	default:
		return fmt.Sprintf("Run: chmod 644 %s", path)
	}
}

// getPermissionDetails reports the current file mode.
func getPermissionDetails(path string) string {
	if runtime.GOOS == "windows" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Current permissions: %04o", info.Mode().Perm())
}
