package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/frankfurt-bikes/stationmap/apps/api/cache"
	"github.com/frankfurt-bikes/stationmap/apps/api/models"
	"github.com/frankfurt-bikes/stationmap/apps/api/repository"
)

// Sources reported in responses and the X-Cache-Status header
const (
	SourceCache    = "cache"
	SourceDatabase = "database"
	SourceStale    = "stale"
)

// StationAggregator defines the aggregation operations used by the handler
type StationAggregator interface {
	Build(ctx context.Context) ([]models.Station, error)
	Destinations(ctx context.Context, stationID int64) (*models.StationDestinations, error)
}

// StationCache defines the cache artifact operations used by the handler
type StationCache interface {
	Read() (*cache.Artifact, bool)
	ReadStale() (*cache.Artifact, bool)
	Write(stations []models.Station) (*cache.Artifact, error)
}

// StationsHandler serves the aggregated station list, from the cache when fresh
type StationsHandler struct {
	agg     StationAggregator
	cache   StationCache
	timeout time.Duration
}

// NewStationsHandler creates a new handler. timeout bounds one aggregation run.
func NewStationsHandler(agg StationAggregator, c StationCache, timeout time.Duration) *StationsHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StationsHandler{agg: agg, cache: c, timeout: timeout}
}

// GetStationsResponse is the JSON response structure for GET /api/stations
type GetStationsResponse struct {
	Stations    []models.Station `json:"stations"`
	Count       int              `json:"count"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Source      string           `json:"source"`
}

// Refresh aggregates the database and rewrites the artifact regardless of its age.
// A failed write is logged and the computed artifact is still returned.
func (h *StationsHandler) Refresh(ctx context.Context) (*cache.Artifact, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	stations, err := h.agg.Build(ctx)
	if err != nil {
		return nil, err
	}

	artifact, err := h.cache.Write(stations)
	if err != nil {
		if artifact == nil {
			return nil, err
		}
		log.Printf("Warning: failed to write station cache: %v", err)
	}
	return artifact, nil
}

// load returns the fresh artifact, regenerating it on a miss. When the
// database fails it falls back to whatever artifact is on disk.
func (h *StationsHandler) load(ctx context.Context) (*cache.Artifact, string, error) {
	if artifact, ok := h.cache.Read(); ok {
		return artifact, SourceCache, nil
	}

	artifact, err := h.Refresh(ctx)
	if err == nil {
		return artifact, SourceDatabase, nil
	}
	log.Printf("Failed to aggregate stations: %v", err)

	if stale, ok := h.cache.ReadStale(); ok {
		log.Printf("Serving stale station cache generated at %s", stale.GeneratedAt.UTC().Format(time.RFC3339))
		return stale, SourceStale, nil
	}
	return nil, "", err
}

// GetCacheFile handles GET /cache/stations.json
// Returns the cache artifact exactly as stored on disk
func (h *StationsHandler) GetCacheFile(w http.ResponseWriter, r *http.Request) {
	artifact, source, err := h.load(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Station data is unavailable", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache-Status", source)
	w.Header().Set("Last-Modified", artifact.GeneratedAt.UTC().Format(http.TimeFormat))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Raw)
}

// GetAllStations handles GET /api/stations
func (h *StationsHandler) GetAllStations(w http.ResponseWriter, r *http.Request) {
	artifact, source, err := h.load(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to retrieve stations", err)
		return
	}

	response := GetStationsResponse{
		Stations:    artifact.Stations,
		Count:       len(artifact.Stations),
		GeneratedAt: artifact.GeneratedAt.UTC(),
		Source:      source,
	}

	w.Header().Set("X-Cache-Status", source)
	writeJSON(w, http.StatusOK, response)
}

// GetStationByID handles GET /api/stations/{stationId}
// Looks the station up in the cached artifact
func (h *StationsHandler) GetStationByID(w http.ResponseWriter, r *http.Request) {
	stationID, ok := parseStationID(w, r)
	if !ok {
		return
	}

	artifact, source, err := h.load(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to retrieve stations", err)
		return
	}

	station, found := models.FindStation(artifact.Stations, stationID)
	if !found {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: "Station not found",
			Details: map[string]interface{}{
				"stationId": stationID,
			},
		})
		return
	}

	w.Header().Set("X-Cache-Status", source)
	writeJSON(w, http.StatusOK, station)
}

// GetStationDestinations handles GET /api/stations/{stationId}/destinations
// Queries the database directly; the breakdown is not part of the artifact
func (h *StationsHandler) GetStationDestinations(w http.ResponseWriter, r *http.Request) {
	stationID, ok := parseStationID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	destinations, err := h.agg.Destinations(ctx, stationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{
				Error: "Station not found",
				Details: map[string]interface{}{
					"stationId": stationID,
				},
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to retrieve destinations", err)
		return
	}

	writeJSON(w, http.StatusOK, destinations)
}

func parseStationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "stationId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "stationId must be a positive integer",
			Details: map[string]interface{}{
				"stationId": raw,
			},
		})
		return 0, false
	}
	return id, true
}

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Details: map[string]interface{}{
			"internal": err.Error(),
		},
	})
}
