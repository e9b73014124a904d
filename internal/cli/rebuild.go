package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanglvm/persona-search/internal/profile"
	"github.com/khanglvm/persona-search/internal/storage"
	"github.com/khanglvm/persona-search/internal/supervisor"
)

// NewRebuildCmd creates the 'rebuild' command that rebuilds every profile once.
func NewRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild every user's profile once",
		Long: `Run a single rebuild cycle over every user with recorded events or a
stored profile, then exit. Explicit interests and exclusions are preserved.

Failures for individual users are logged and counted; the cycle continues.`,
		Example: `  persona-search rebuild
  persona-search rebuild --config ./persona-search.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfiles(cmd, func(store storage.Storage, profiles *profile.Service) error {
				svc := supervisor.NewRebuildService(profiles, store, 0, true)
				stats, err := svc.RunCycle(cmd.Context())
				if err != nil {
					return fmt.Errorf("rebuild failed: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Users:    %d\n", stats.Users)
				fmt.Fprintf(out, "Rebuilt:  %d\n", stats.Rebuilt)
				fmt.Fprintf(out, "Failed:   %d\n", stats.Failed)
				fmt.Fprintf(out, "Duration: %s\n", stats.Duration)
				return nil
			})
		},
	}
}
