package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jwliu/vantage/internal/scheduler"
	"github.com/jwliu/vantage/internal/scheduler/jobs"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the job scheduler",
	Long: `Runs the cron scheduler with the standing jobs:

  daily_ranking - collect data and rank after the close (15:45 weekdays)
  maintenance   - prune aged ranked lists (Sunday 03:00)

Example:
  go run ./cmd/vantage scheduler`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	sched := scheduler.New(app.log)

	rankingJob := jobs.NewDailyRankingJob(
		app.newCollector(),
		app.orchestrator,
		app.calendarRepo,
		app.auditRepo,
		app.decisionSnapshot,
		app.log,
	)
	if err := sched.AddJob(rankingJob); err != nil {
		return fmt.Errorf("add ranking job: %w", err)
	}

	maintenanceJob := jobs.NewMaintenanceJob(app.rankingRepo, app.log)
	if err := sched.AddJob(maintenanceJob); err != nil {
		return fmt.Errorf("add maintenance job: %w", err)
	}

	sched.Start()
	fmt.Println("Scheduler running, press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}
