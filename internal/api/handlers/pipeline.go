package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jwliu/vantage/internal/pipeline"
	"github.com/jwliu/vantage/pkg/logger"
)

// PipelineHandler handles pipeline run endpoints
type PipelineHandler struct {
	orchestrator *pipeline.Orchestrator
	logger       *logger.Logger
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(orchestrator *pipeline.Orchestrator, log *logger.Logger) *PipelineHandler {
	return &PipelineHandler{
		orchestrator: orchestrator,
		logger:       log,
	}
}

// RunRequest represents a pipeline run request
type RunRequest struct {
	Date    string `json:"date"`    // Optional: trade date (YYYY-MM-DD), defaults to today
	Persist bool   `json:"persist"` // Store the ranked list
}

// RunResponse represents a pipeline run response
type RunResponse struct {
	RunID           string   `json:"run_id"`
	Date            string   `json:"date"`
	Regime          string   `json:"regime"`
	Candidates      int      `json:"candidates"`
	CompletedStages []string `json:"completed_stages"`
	Duration        string   `json:"duration"`
}

// Run triggers a pipeline run
// POST /api/pipeline/run
func (h *PipelineHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	date := time.Now()
	if req.Date != "" {
		parsed, err := parseDate(req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'date' format (expected YYYY-MM-DD)")
			return
		}
		date = parsed
	}

	result, err := h.orchestrator.Run(ctx, pipeline.RunConfig{
		Date:    date,
		RunID:   pipeline.GenerateRunID(),
		Persist: req.Persist,
	})
	if err != nil {
		h.logger.WithError(err).Error("Pipeline run failed")
		respondError(w, http.StatusInternalServerError, "Pipeline run failed")
		return
	}

	respondJSON(w, http.StatusOK, RunResponse{
		RunID:           result.RunID,
		Date:            result.Date.Format("2006-01-02"),
		Regime:          result.Regime.Regime.String(),
		Candidates:      len(result.RankedList.Candidates),
		CompletedStages: result.CompletedStages,
		Duration:        result.Duration.String(),
	})
}
