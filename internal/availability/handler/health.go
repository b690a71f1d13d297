package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo"

	"lodgeworks/pkg/cache"
	httputil "lodgeworks/pkg/http"
	"lodgeworks/pkg/logger"
	"lodgeworks/pkg/retry"
)

type HealthResponse struct {
	Status   string          `json:"status"`
	Database string          `json:"database,omitempty"`
	Cache    string          `json:"cache,omitempty"`
	Counters *cache.Counters `json:"cache_counters,omitempty"`
}

// HealthHandler reports liveness and readiness. Mongo gates readiness;
// the cache is best effort and only annotates the response.
type HealthHandler struct {
	mongoClient *mongo.Client
	cache       *cache.AvailabilityCache
	health      retry.HealthSignal
	log         *logger.Logger
}

func NewHealthHandler(mongoClient *mongo.Client, availabilityCache *cache.AvailabilityCache, health retry.HealthSignal, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		mongoClient: mongoClient,
		cache:       availabilityCache,
		health:      health,
		log:         log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.health != nil && !h.health.Healthy() {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:   "unavailable",
			Database: "unhealthy",
		})
		return
	}

	if err := h.mongoClient.Ping(ctx, nil); err != nil {
		h.log.Error("Database health check failed", "error", err, "path", r.URL.Path)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:   "unavailable",
			Database: "error",
		})
		return
	}

	resp := HealthResponse{Status: "ready", Database: "ok"}
	if h.cache != nil {
		resp.Cache = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			resp.Cache = "degraded"
		}
		counters := h.cache.Counters()
		resp.Counters = &counters
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
