package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwliu/vantage/internal/pipeline"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Run the ranking pipeline for one trade date",
	Long: `Runs the full pipeline for a single trade date: regime detection,
virtual-board clustering, the candidate funnel, factor scoring and
validation. Prints the ranked list.

Example:
  go run ./cmd/vantage rank --date 2026-03-02
  go run ./cmd/vantage rank --date 2026-03-02 --persist --top 20`,
	RunE: runRank,
}

var (
	rankDate    string
	rankPersist bool
	rankTop     int
)

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringVar(&rankDate, "date", "", "trade date (YYYY-MM-DD, default: today)")
	rankCmd.Flags().BoolVar(&rankPersist, "persist", false, "store the ranked list")
	rankCmd.Flags().IntVar(&rankTop, "top", 10, "number of candidates to print")
}

func runRank(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	date := time.Now()
	if rankDate != "" {
		date, err = time.Parse("2006-01-02", rankDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	ctx := context.Background()

	result, err := app.orchestrator.Run(ctx, pipeline.RunConfig{
		Date:      date,
		RunID:     pipeline.GenerateRunID(),
		GitCommit: app.cfg.GitCommit,
		Persist:   rankPersist,
	})
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	if rankPersist {
		snap, err := app.decisionSnapshot()
		if err != nil {
			return fmt.Errorf("build decision snapshot: %w", err)
		}
		if err := app.auditRepo.SaveDecisionSnapshot(ctx, result.RunID, snap); err != nil {
			return fmt.Errorf("save decision snapshot: %w", err)
		}
	}

	fmt.Printf("Run %s  date=%s  regime=%s  survivors=%d  rejected=%d\n\n",
		result.RunID,
		result.Date.Format("2006-01-02"),
		result.Regime.Regime,
		len(result.Universe.Stocks),
		len(result.Universe.Rejected),
	)

	fmt.Printf("%-4s %-8s %10s %10s %10s %10s\n",
		"#", "CODE", "TECH", "CAPITAL", "CONCEPT", "ADJUSTED")
	for _, c := range result.RankedList.Top(rankTop) {
		fmt.Printf("%-4d %-8s %10.2f %10.2f %10.2f %10.2f\n",
			c.Rank, c.Code, c.TechnicalScore, c.CapitalScore, c.ConceptScore, c.Adjusted)
	}

	return nil
}
