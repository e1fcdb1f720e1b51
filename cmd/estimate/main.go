// Command estimate runs location estimates offline, without Kafka or any
// external collaborator.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	verbose       bool
	scoringConfig string
	strict        bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:          "estimate",
		Short:        "Estimate storefront revenue and location scores from the command line",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log pipeline stages to stderr")
	rootCmd.PersistentFlags().StringVar(&opts.scoringConfig, "scoring-config", "", "YAML file overriding the scoring weights")
	rootCmd.PersistentFlags().BoolVar(&opts.strict, "strict", false, "Always rescale area percentages to sum to 100")

	rootCmd.AddCommand(runCmd(opts))
	rootCmd.AddCommand(normalizeCmd(opts))
	rootCmd.AddCommand(junctionsCmd())

	return rootCmd
}
