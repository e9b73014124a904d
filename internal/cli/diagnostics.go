package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/khanglvm/persona-search/internal/profile"
	"github.com/khanglvm/persona-search/internal/storage"
)

// NewDiagnosticsCmd creates the diagnostics command group.
func NewDiagnosticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Inspect tokenizer and storage diagnostics",
	}

	cmd.AddCommand(newDiscardedTokensCmd())
	return cmd
}

// newDiscardedTokensCmd reports the most frequently discarded query tokens.
func newDiscardedTokensCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "discarded-tokens",
		Short: "Show the most frequently discarded query tokens",
		Long: `List the tokens the query tokenizer dropped most often (stop words,
short tokens and numbers). Use the report to tune the stop-word list.

Counts grow on every rebuild that sees the token, so they measure how often a
token was discarded, not how many queries contained it.`,
		Example: `  persona-search diagnostics discarded-tokens
  persona-search diagnostics discarded-tokens --limit 50 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfiles(cmd, func(store storage.Storage, _ *profile.Service) error {
				tokens, err := store.TopDiscardedTokens(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("failed to read discarded tokens: %w", err)
				}
				if jsonOutput {
					return printJSON(cmd, tokens)
				}
				if len(tokens) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No discarded tokens recorded.")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TOKEN\tCOUNT")
				for _, t := range tokens {
					fmt.Fprintf(w, "%s\t%d\n", t.Token, t.Count)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of tokens to show")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}
