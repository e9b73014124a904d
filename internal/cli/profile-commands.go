package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/khanglvm/persona-search/internal/profile"
	"github.com/khanglvm/persona-search/internal/storage"
)

// newProfileShowCmd prints a stored profile, optionally rebuilding it first.
func newProfileShowCmd() *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "show <user>",
		Short: "Print a profile as JSON",
		Example: `  persona-search profile show alice
  persona-search profile show alice --rebuild`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfiles(cmd, func(_ storage.Storage, profiles *profile.Service) error {
				var (
					p   *storage.Profile
					err error
				)
				if rebuild {
					p, err = profiles.Rebuild(cmd.Context(), args[0])
				} else {
					p, err = profiles.Get(cmd.Context(), args[0])
				}
				if err != nil {
					return err
				}
				return printJSON(cmd, p)
			})
		},
	}

	cmd.Flags().BoolVarP(&rebuild, "rebuild", "r", false, "Rebuild from event history before printing")
	return cmd
}

// newProfilePromoteCmd adds an explicit interest.
func newProfilePromoteCmd() *cobra.Command {
	var weight float64

	cmd := &cobra.Command{
		Use:   "promote <user> <keyword>",
		Short: "Add an explicit interest",
		Long: `Add a keyword to the user's explicit interests. The keyword is removed
from the exclusions and the implicit interests. Promoting a keyword that is
already explicit (ignoring case) fails.`,
		Example: `  persona-search profile promote alice golang
  persona-search profile promote alice "machine learning" --weight 0.7`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editProfile(cmd, args, func(s *profile.Service, ctx context.Context, user, kw string) (*storage.Profile, error) {
				return s.Promote(ctx, user, kw, weight)
			})
		},
	}

	cmd.Flags().Float64VarP(&weight, "weight", "w", 1.0, "Interest weight in [0, 1]")
	return cmd
}

// newProfileRemoveCmd removes an explicit interest.
func newProfileRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <user> <keyword>",
		Aliases: []string{"rm"},
		Short:   "Remove an explicit interest",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editProfile(cmd, args, (*profile.Service).RemoveExplicit)
		},
	}
}

// newProfileExcludeCmd excludes a keyword and rebuilds.
func newProfileExcludeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exclude <user> <keyword>",
		Short: "Exclude a keyword from implicit interests",
		Long: `Add a keyword to the user's exclusions and rebuild the profile so the
keyword disappears from the implicit interests immediately.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editProfile(cmd, args, rebuildAfter((*profile.Service).Exclude))
		},
	}
}

// newProfileUnexcludeCmd lifts an exclusion and rebuilds.
func newProfileUnexcludeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unexclude <user> <keyword>",
		Short: "Lift an exclusion",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editProfile(cmd, args, rebuildAfter((*profile.Service).Unexclude))
		},
	}
}

type profileEdit func(s *profile.Service, ctx context.Context, user, keyword string) (*storage.Profile, error)

// editProfile runs edit for args[0] (user) and args[1] (keyword) and prints the result.
func editProfile(cmd *cobra.Command, args []string, edit profileEdit) error {
	return withProfiles(cmd, func(_ storage.Storage, profiles *profile.Service) error {
		p, err := edit(profiles, cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd, p)
	})
}

// rebuildAfter chains a rebuild of the same user after edit.
func rebuildAfter(edit profileEdit) profileEdit {
	return func(s *profile.Service, ctx context.Context, user, keyword string) (*storage.Profile, error) {
		if _, err := edit(s, ctx, user, keyword); err != nil {
			return nil, err
		}
		return s.Rebuild(ctx, user)
	}
}
