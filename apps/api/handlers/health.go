package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/frankfurt-bikes/stationmap/apps/api/models"
)

// DatabasePinger is implemented by every station repository
type DatabasePinger interface {
	Ping(ctx context.Context) error
	Driver() string
}

// CacheInspector reports the state of the cache artifact
type CacheInspector interface {
	Freshness() models.CacheFreshness
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db    DatabasePinger
	cache CacheInspector
}

// NewHealthHandler creates a new handler
func NewHealthHandler(db DatabasePinger, c CacheInspector) *HealthHandler {
	return &HealthHandler{db: db, cache: c}
}

// GetHealth handles GET /health
// Checks database connectivity and reports cache freshness
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	report := models.HealthReport{
		Database:  "connected",
		Driver:    h.db.Driver(),
		Cache:     h.cache.Freshness(),
		Timestamp: time.Now().UTC(),
	}

	status := http.StatusOK
	dbUp := true
	if err := h.db.Ping(ctx); err != nil {
		dbUp = false
		report.Database = "disconnected"
		report.Error = err.Error()
		status = http.StatusServiceUnavailable
	}
	report.Status = models.CalculateHealthStatus(dbUp, report.Cache.Status)

	writeJSON(w, status, report)
}

// GetLiveness handles GET /healthz
func (h *HealthHandler) GetLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
