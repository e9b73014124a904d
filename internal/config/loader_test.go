package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PERSONA_SEARCH_STORAGE__PATH", filepath.Join(t.TempDir(), "p.db"))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Cache.Path == "" || cfg.Search.IndexPath == "" {
		t.Error("derived paths should be filled")
	}
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlDoc := `
server:
  port: 9000
profile:
  click_weight: 4
rebuild:
  interval: 10m
storage:
  path: ` + filepath.Join(dir, "persona.db") + `
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0644); err != nil {
		t.Fatal(err)
	}

	// Environment overrides the file
	t.Setenv("PERSONA_SEARCH_SERVER__PORT", "9100")
	t.Setenv("PERSONA_SEARCH_REBUILD__ENABLED", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100 from env", cfg.Server.Port)
	}
	if cfg.Profile.ClickWeight != 4 {
		t.Errorf("click_weight = %v, want 4 from file", cfg.Profile.ClickWeight)
	}
	if cfg.Profile.QueryWeight != 1 {
		t.Errorf("query_weight = %v, want default 1", cfg.Profile.QueryWeight)
	}
	if cfg.Rebuild.Interval != 10*time.Minute {
		t.Errorf("interval = %v, want 10m", cfg.Rebuild.Interval)
	}
	if cfg.Rebuild.Enabled {
		t.Error("rebuild should be disabled by env")
	}
	if cfg.Cache.Path != filepath.Join(dir, "expansion-cache") {
		t.Errorf("cache path = %q", cfg.Cache.Path)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("file not found", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		var nf *ConfigNotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("expected ConfigNotFoundError, got %v", err)
		}
		if !strings.Contains(err.Error(), "config init") {
			t.Errorf("error should mention config init, got: %v", err)
		}
	})

	t.Run("invalid YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		os.WriteFile(path, []byte("server: [unclosed"), 0644)

		_, err := Load(path)
		var invalid *InvalidConfigError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidConfigError, got %v", err)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "range.yaml")
		os.WriteFile(path, []byte("profile:\n  rank_weight_floor: 2\n"), 0644)

		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), "rank_weight_floor") {
			t.Fatalf("expected rank_weight_floor error, got %v", err)
		}
	})
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := Default()
	cfg.Profile.SessionBoost = 2
	cfg.Rebuild.Interval = 7 * time.Minute
	cfg.Storage.Path = filepath.Join(dir, "persona.db")

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "7m0s") {
		t.Errorf("durations should be written as strings:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load after Save failed: %v", err)
	}
	if loaded.Profile.SessionBoost != 2 || loaded.Rebuild.Interval != 7*time.Minute {
		t.Errorf("round trip mismatch: %+v %+v", loaded.Profile, loaded.Rebuild)
	}

	// Second save keeps a backup
	if err := Save(cfg, path); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	if _, err := os.Stat(path + ".bak"); err != nil {
		t.Errorf("backup not created: %v", err)
	}
}

func TestLoadDefaultPathFallback(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("PERSONA_SEARCH_STORAGE__PATH", filepath.Join(t.TempDir(), "p.db"))

	path := filepath.Join(home, ".persona-search", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("server:\n  port: 9200\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("Server.Port = %d, want 9200 from %s", cfg.Server.Port, path)
	}
}
