package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanglvm/persona-search/internal/profile"
	"github.com/khanglvm/persona-search/internal/storage"
)

// NewCleanupCmd creates the 'cleanup' command that prunes old events.
func NewCleanupCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete old query and interaction events",
		Long: `Delete query and interaction events older than --older-than and vacuum
the database. Profiles are kept; their implicit interests shrink at the next
rebuild once the events behind them are gone.`,
		Example: `  persona-search cleanup --older-than 2160h  # 90 days`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return withProfiles(cmd, func(store storage.Storage, _ *profile.Service) error {
				deleted, err := store.Cleanup(cmd.Context(), olderThan)
				if err != nil {
					return fmt.Errorf("cleanup failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d events older than %s\n", deleted, olderThan)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 90*24*time.Hour, "Retention window")
	return cmd
}
