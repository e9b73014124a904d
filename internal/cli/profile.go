package cli

import (
	"github.com/spf13/cobra"
)

// NewProfileCmd creates the profile command group.
func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect and edit user interest profiles",
		Long: `Profiles hold a user's explicit interests (declared keywords with a
weight in [0, 1]), implicit interests (learned from queries and clicks) and
exclusions (keywords that must never come back as implicit interests).

All data is stored locally in the sqlite database named by storage.path.

Commands:
  show       Print a profile as JSON
  promote    Add an explicit interest
  remove     Remove an explicit interest
  exclude    Exclude a keyword from implicit interests
  unexclude  Lift an exclusion`,
	}

	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfilePromoteCmd())
	cmd.AddCommand(newProfileRemoveCmd())
	cmd.AddCommand(newProfileExcludeCmd())
	cmd.AddCommand(newProfileUnexcludeCmd())

	return cmd
}
