package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vantage",
	Short: "Vantage - daily A-share candidate ranking",
	Long: `Vantage ranks A-share stocks after each close.

The pipeline detects the market regime, merges overlapping thematic
sectors into virtual boards, runs the candidate funnel, scores the
survivors on technical, capital and concept factors, and validates
the final list.

Examples:
  go run ./cmd/vantage collect
  go run ./cmd/vantage rank --date 2026-03-02 --persist
  go run ./cmd/vantage backtest --from 2026-01-05 --to 2026-03-02
  go run ./cmd/vantage api
  go run ./cmd/vantage scheduler`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML file (default from STRATEGY_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
