package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwliu/vantage/internal/api"
	"github.com/jwliu/vantage/internal/api/handlers"
	"github.com/jwliu/vantage/pkg/redis"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                - Health check
  GET  /api/ranking/{date}    - Ranked list for a trade date
  GET  /api/clusters/{date}   - Virtual-board mapping
  POST /api/pipeline/run      - Trigger a pipeline run
  POST /api/backtest/run      - Trigger a backtest

Example:
  go run ./cmd/vantage api
  go run ./cmd/vantage api --port 8086`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if apiPort != "" {
		app.cfg.Port = apiPort
	}

	redisClient, err := app.newRedis()
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	cache := redis.NewCache(redisClient, "vantage")
	limiter := redis.NewRateLimiter(redisClient, "vantage")

	router := api.NewRouter(
		handlers.NewRankingHandler(app.rankingRepo, cache, app.log),
		handlers.NewClusterHandler(app.sectorRepo, app.clusterer, cache, app.log),
		handlers.NewPipelineHandler(app.orchestrator, app.log),
		handlers.NewBacktestHandler(app.backtester, app.backtestRepo, app.log),
		limiter,
		app.log,
	)
	server := api.New(app.cfg, app.log, router)

	go func() {
		if err := server.Start(); err != nil {
			app.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("API server listening on :%s\n", app.cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
