package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwliu/vantage/internal/ingest"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect the day's market data",
	Long: `Fetches quotes, money flow and concept boards from Eastmoney,
derives trailing indicators from stored bar history, and writes the
day's snapshots, sector aggregates and breadth stats.

Example:
  go run ./cmd/vantage collect
  go run ./cmd/vantage collect --date 2026-03-02 --workers 8`,
	RunE: runCollect,
}

var (
	collectDate    string
	collectWorkers int
)

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVar(&collectDate, "date", "", "trade date (YYYY-MM-DD, default: today)")
	collectCmd.Flags().IntVar(&collectWorkers, "workers", 5, "concurrent workers")
}

func runCollect(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	date := time.Now()
	if collectDate != "" {
		date, err = time.Parse("2006-01-02", collectDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	collector := app.newCollector()
	result, err := collector.CollectDaily(context.Background(), date, ingest.Config{Workers: collectWorkers})
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	fmt.Printf("Collected %d snapshots, %d sectors (%d failed)\n",
		result.Snapshots, result.Sectors, result.Failed)

	return nil
}
