package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jwliu/vantage/internal/contracts"
	"github.com/jwliu/vantage/internal/marketdata"
	"github.com/jwliu/vantage/pkg/logger"
	"github.com/jwliu/vantage/pkg/redis"
)

const rankingCacheTTL = 10 * time.Minute

// RankingHandler handles ranked-list API endpoints
type RankingHandler struct {
	rankingRepo *marketdata.RankingRepository
	cache       *redis.Cache
	logger      *logger.Logger
}

// NewRankingHandler creates a new ranking handler
func NewRankingHandler(rankingRepo *marketdata.RankingRepository, cache *redis.Cache, log *logger.Logger) *RankingHandler {
	return &RankingHandler{
		rankingRepo: rankingRepo,
		cache:       cache,
		logger:      log,
	}
}

// GetRanking returns the persisted ranked list for a trade date
// GET /api/ranking/{date}
func (h *RankingHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, err := parseDate(mux.Vars(r)["date"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format (expected YYYY-MM-DD)")
		return
	}

	cacheKey := "ranking:" + date.Format("2006-01-02")
	var cached contracts.RankedList
	if found, _ := h.cache.Get(ctx, cacheKey, &cached); found {
		respondJSON(w, http.StatusOK, &cached)
		return
	}

	list, err := h.rankingRepo.GetRankedList(ctx, date)
	if errors.Is(err, marketdata.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No ranked list for date")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get ranked list")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve ranked list")
		return
	}

	if err := h.cache.Set(ctx, cacheKey, list, rankingCacheTTL); err != nil {
		h.logger.WithError(err).Warn("Ranking cache write failed")
	}

	respondJSON(w, http.StatusOK, list)
}
