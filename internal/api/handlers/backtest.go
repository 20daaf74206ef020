package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jwliu/vantage/internal/backtest"
	"github.com/jwliu/vantage/internal/marketdata"
	"github.com/jwliu/vantage/pkg/logger"
)

// BacktestHandler handles backtest API endpoints
type BacktestHandler struct {
	engine *backtest.Engine
	repo   *marketdata.BacktestRepository
	logger *logger.Logger
}

// NewBacktestHandler creates a new backtest handler
func NewBacktestHandler(engine *backtest.Engine, repo *marketdata.BacktestRepository, log *logger.Logger) *BacktestHandler {
	return &BacktestHandler{
		engine: engine,
		repo:   repo,
		logger: log,
	}
}

// BacktestRequest represents a backtest run request
type BacktestRequest struct {
	From    string `json:"from"` // YYYY-MM-DD
	To      string `json:"to"`   // YYYY-MM-DD
	Persist bool   `json:"persist"`
}

// Run triggers a backtest over a date range
// POST /api/backtest/run
func (h *BacktestHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	from, err := parseDate(req.From)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'from' date format (expected YYYY-MM-DD)")
		return
	}
	to, err := parseDate(req.To)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'to' date format (expected YYYY-MM-DD)")
		return
	}
	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "'to' must not precede 'from'")
		return
	}

	report, err := h.engine.Run(ctx, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Backtest run failed")
		respondError(w, http.StatusInternalServerError, "Backtest run failed")
		return
	}

	if req.Persist {
		if err := h.repo.SaveReport(ctx, report); err != nil {
			h.logger.WithError(err).Error("Failed to save backtest report")
			respondError(w, http.StatusInternalServerError, "Failed to save backtest report")
			return
		}
	}

	respondJSON(w, http.StatusOK, report)
}
