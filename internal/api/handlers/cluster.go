package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jwliu/vantage/internal/cluster"
	"github.com/jwliu/vantage/internal/contracts"
	"github.com/jwliu/vantage/internal/marketdata"
	"github.com/jwliu/vantage/pkg/logger"
	"github.com/jwliu/vantage/pkg/redis"
)

const clusterCacheTTL = 30 * time.Minute

// ClusterHandler handles virtual-board API endpoints
type ClusterHandler struct {
	sectorRepo *marketdata.SectorRepository
	clusterer  *cluster.Engine
	cache      *redis.Cache
	logger     *logger.Logger
}

// NewClusterHandler creates a new cluster handler
func NewClusterHandler(
	sectorRepo *marketdata.SectorRepository,
	clusterer *cluster.Engine,
	cache *redis.Cache,
	log *logger.Logger,
) *ClusterHandler {
	return &ClusterHandler{
		sectorRepo: sectorRepo,
		clusterer:  clusterer,
		cache:      cache,
		logger:     log,
	}
}

// GetClusters returns the virtual-board assignment for a trade date
// GET /api/clusters/{date}
func (h *ClusterHandler) GetClusters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, err := parseDate(mux.Vars(r)["date"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format (expected YYYY-MM-DD)")
		return
	}

	cacheKey := "clusters:" + date.Format("2006-01-02")
	var cached contracts.ClusterAssignment
	if found, _ := h.cache.Get(ctx, cacheKey, &cached); found {
		respondJSON(w, http.StatusOK, &cached)
		return
	}

	snapshots, err := h.sectorRepo.GetSectorSnapshots(ctx, date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load sector snapshots")
		respondError(w, http.StatusInternalServerError, "Failed to load sector snapshots")
		return
	}
	if len(snapshots) == 0 {
		respondError(w, http.StatusNotFound, "No sector data for date")
		return
	}

	constituents, err := h.sectorRepo.GetConstituents(ctx, date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load constituents")
		respondError(w, http.StatusInternalServerError, "Failed to load constituents")
		return
	}

	sectors := make([]contracts.SectorSnapshot, len(snapshots))
	for i, s := range snapshots {
		sectors[i] = *s
	}

	assignment := h.clusterer.Build(date, sectors, constituents)

	if err := h.cache.Set(ctx, cacheKey, assignment, clusterCacheTTL); err != nil {
		h.logger.WithError(err).Warn("Cluster cache write failed")
	}

	respondJSON(w, http.StatusOK, assignment)
}
