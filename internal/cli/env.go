/*
Package cli implements the command-line interface for persona-search.

Each command is implemented as a separate function that returns a *cobra.Command,
allowing for clean separation and easy testing. Commands that touch data load
the layered configuration (see package config) from the persistent --config
flag and open the sqlite store it points at.
*/
package cli

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/khanglvm/persona-search/internal/config"
	"github.com/khanglvm/persona-search/internal/logging"
	"github.com/khanglvm/persona-search/internal/profile"
	"github.com/khanglvm/persona-search/internal/storage"
)

// ConfigFlag is the persistent flag naming the YAML config file.
const ConfigFlag = "config"

// loadConfig reads the configuration named by --config and points the global
// logger at it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := ""
	if f := cmd.Flags().Lookup(ConfigFlag); f != nil {
		path = f.Value.String()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: cmd.ErrOrStderr(),
	})
	return cfg, nil
}

// openStorage opens and migrates the configured database.
func openStorage(cfg *config.Config) (*storage.SQLiteStorage, error) {
	store := storage.NewStorage(cfg.Storage.Path)
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

// withProfiles loads config, opens storage and runs fn with a profile service.
func withProfiles(cmd *cobra.Command, fn func(store storage.Storage, profiles *profile.Service) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(store, profile.NewService(store, profile.ParamsFromConfig(cfg.Profile)))
}

// printJSON pretty-prints v to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
