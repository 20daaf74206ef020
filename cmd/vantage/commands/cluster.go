package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwliu/vantage/internal/contracts"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Print the virtual-board mapping for a trade date",
	Long: `Builds the Jaccard merge of the day's thematic sectors and prints
each virtual board with its member concepts and weights.

Example:
  go run ./cmd/vantage cluster --date 2026-03-02`,
	RunE: runCluster,
}

var clusterDate string

func init() {
	rootCmd.AddCommand(clusterCmd)

	clusterCmd.Flags().StringVar(&clusterDate, "date", "", "trade date (YYYY-MM-DD, default: today)")
}

func runCluster(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	date := time.Now()
	if clusterDate != "" {
		date, err = time.Parse("2006-01-02", clusterDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	ctx := context.Background()

	snapshots, err := app.sectorRepo.GetSectorSnapshots(ctx, date)
	if err != nil {
		return fmt.Errorf("load sector snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		return fmt.Errorf("no sector data for %s", date.Format("2006-01-02"))
	}

	constituents, err := app.sectorRepo.GetConstituents(ctx, date)
	if err != nil {
		return fmt.Errorf("load constituents: %w", err)
	}

	sectors := make([]contracts.SectorSnapshot, len(snapshots))
	for i, s := range snapshots {
		sectors[i] = *s
	}

	assignment := app.clusterer.Build(date, sectors, constituents)

	boards := make([]string, 0, len(assignment.Members))
	for board := range assignment.Members {
		boards = append(boards, board)
	}
	sort.Strings(boards)

	fmt.Printf("%d virtual boards from %d concepts on %s\n\n",
		len(boards), len(assignment.Canonical), date.Format("2006-01-02"))

	for _, board := range boards {
		members := assignment.Members[board]
		fmt.Printf("%s (%d members)\n", board, len(members))
		for _, m := range members {
			fmt.Printf("  %-20s weight=%.3f\n", m, assignment.Weight[m])
		}
	}

	return nil
}
