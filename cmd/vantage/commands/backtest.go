package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay the pipeline over a date range",
	Long: `Replays the ranking pipeline for every trading day in the range and
evaluates the top candidates over the forward window with an ATR stop.

Example:
  go run ./cmd/vantage backtest --from 2026-01-05 --to 2026-03-02
  go run ./cmd/vantage backtest --from 2026-01-05 --to 2026-03-02 --save`,
	RunE: runBacktest,
}

var (
	backtestFrom string
	backtestTo   string
	backtestSave bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "start date (YYYY-MM-DD, required)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "end date (YYYY-MM-DD, default: today)")
	backtestCmd.Flags().BoolVar(&backtestSave, "save", false, "store the backtest report")

	backtestCmd.MarkFlagRequired("from")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	from, err := time.Parse("2006-01-02", backtestFrom)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	to := time.Now()
	if backtestTo != "" {
		to, err = time.Parse("2006-01-02", backtestTo)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
	}

	report, err := app.backtester.Run(context.Background(), from, to)
	if err != nil {
		return fmt.Errorf("backtest run: %w", err)
	}

	fmt.Printf("Backtest %s .. %s\n", report.From.Format("2006-01-02"), report.To.Format("2006-01-02"))
	fmt.Printf("  entries:       %d\n", report.TotalEntries)
	fmt.Printf("  wins:          %d\n", report.Wins)
	fmt.Printf("  fails:         %d\n", report.Fails)
	fmt.Printf("  stop-outs:     %d\n", report.StopOuts)
	fmt.Printf("  win rate:      %.1f%%\n", report.WinRate*100)
	fmt.Printf("  avg return:    %.2f%%\n", report.AvgReturn*100)
	fmt.Printf("  avg max ret:   %.2f%%\n", report.AvgMaxReturn*100)
	fmt.Printf("  dd avoided:    %.2f%%\n", report.AvgDrawdownAvoided*100)

	if backtestSave {
		if err := app.backtestRepo.SaveReport(context.Background(), report); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		fmt.Println("\nReport saved")
	}

	return nil
}
