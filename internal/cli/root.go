// Package cli wires the ai command tree: query routing, memory, the
// staged tekton workflow, local RAG, and Slack analytics.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	rootCmd *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "ai [query...]",
		Short: "PayReady AI - unified AI command line",
		Long: `PayReady AI routes natural-language queries to the right hosted model,
injects git context, and remembers what you told it.

Run with a query to ask, or use a subcommand. Prefix a query with
claude:, codex:, web:, or agent: to pick the route yourself.`,
		Args:          cobra.ArbitraryArgs,
		RunE:          runAsk,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.Flags().String("provider", "", "Force a provider route (claude, codex, web, agent)")
	rootCmd.Flags().String("model", "", "Override the model for this query")
	rootCmd.Flags().Bool("no-context", false, "Skip git context injection")
	rootCmd.Flags().Bool("debug", false, "Print the routing decision instead of querying")
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.AddCommand(rememberCmd)
	rootCmd.AddCommand(recallCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(tektonCmd)
	rootCmd.AddCommand(ragCmd)
	rootCmd.AddCommand(biCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
