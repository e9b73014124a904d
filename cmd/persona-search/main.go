/*
Package main is the entry point for the persona-search CLI.

persona-search is a personalized web search service. It learns per-user
interest profiles from queries and result clicks, uses them to expand queries
through a local LLM and reranks web results toward what each user cares about.

Usage:
  persona-search [command]

Available Commands:
  serve        Start the personalized search HTTP server
  rebuild      Rebuild every user's profile once
  profile      Inspect and edit user interest profiles
  diagnostics  Inspect tokenizer and storage diagnostics
  cleanup      Delete old query and interaction events
  config       Create and inspect configuration files
  token        Issue a bearer token for a user
  version      Show version information
  help         Help about any command

Examples:
  # Write a config file and start the server
  persona-search config init
  persona-search serve

  # Pin an interest for a user
  persona-search profile promote alice golang --weight 0.8
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/khanglvm/persona-search/internal/cli"
	"github.com/khanglvm/persona-search/internal/version"
)

// Version information (set via ldflags during build)
var (
	buildVersion = "dev"
	commit       = "none"
	date         = "unknown"
)

func main() {
	version.Version, version.Commit, version.Date = buildVersion, commit, date

	rootCmd := &cobra.Command{
		Use:   "persona-search",
		Short: "Personalized web search with learned interest profiles",
		Long: `persona-search personalizes web search per user.

Every query and result click is recorded. A background job turns that history
into an interest profile (implicit interests with recency and session boosts,
plus explicit interests the user pins). Profiles steer LLM query expansion and
rerank provider results, and fall back to a local full-text index when the
provider is unavailable.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP(cli.ConfigFlag, "c", "", "Config file (default: $PERSONA_SEARCH_CONFIG)")

	// Add subcommands
	rootCmd.AddCommand(cli.NewServeCmd())
	rootCmd.AddCommand(cli.NewRebuildCmd())
	rootCmd.AddCommand(cli.NewProfileCmd())
	rootCmd.AddCommand(cli.NewDiagnosticsCmd())
	rootCmd.AddCommand(cli.NewCleanupCmd())
	rootCmd.AddCommand(cli.NewConfigCmd())
	rootCmd.AddCommand(cli.NewTokenCmd())
	rootCmd.AddCommand(cli.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
