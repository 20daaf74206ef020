package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/jwliu/vantage/internal/api/handlers"
	"github.com/jwliu/vantage/pkg/logger"
	"github.com/jwliu/vantage/pkg/redis"
)

// Run triggers are expensive; cap them per minute across processes.
var triggerLimit = redis.RateLimitConfig{
	Key:    "run_triggers",
	Limit:  5,
	Window: time.Minute,
}

// NewRouter creates and configures the HTTP router
func NewRouter(
	rankingHandler *handlers.RankingHandler,
	clusterHandler *handlers.ClusterHandler,
	pipelineHandler *handlers.PipelineHandler,
	backtestHandler *handlers.BacktestHandler,
	limiter *redis.RateLimiter,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Ranking endpoints
	api.HandleFunc("/ranking/{date}", rankingHandler.GetRanking).Methods("GET")

	// Virtual board endpoints
	api.HandleFunc("/clusters/{date}", clusterHandler.GetClusters).Methods("GET")

	// Pipeline endpoints
	api.HandleFunc("/pipeline/run", rateLimited(limiter, log, pipelineHandler.Run)).Methods("POST")

	// Backtest endpoints
	api.HandleFunc("/backtest/run", rateLimited(limiter, log, backtestHandler.Run)).Methods("POST")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// rateLimited rejects trigger requests over the shared quota
func rateLimited(limiter *redis.RateLimiter, log *logger.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, err := limiter.Allow(r.Context(), triggerLimit)
		if err != nil {
			log.WithError(err).Warn("Rate limit check failed")
			// Fail open: a Redis hiccup should not block operators.
			next(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "Too many run triggers, retry later",
			})
			return
		}
		next(w, r)
	}
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "vantage-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
