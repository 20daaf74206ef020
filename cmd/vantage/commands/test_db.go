package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwliu/vantage/pkg/config"
	"github.com/jwliu/vantage/pkg/database"
)

var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "Check the database connection",
	Long: `Connects to PostgreSQL, pings it and prints pool health.

Example:
  go run ./cmd/vantage test-db`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	fmt.Println("Database connection OK")
	fmt.Printf("  response time: %v\n", status.ResponseTime)
	fmt.Printf("  connections:   %d/%d (%d idle)\n",
		status.TotalConns, status.MaxConns, status.IdleConns)

	return nil
}
