package models

import "time"

// FreshnessStatus constants for the cache artifact
const (
	FreshnessFresh   = "fresh"   // younger than the max age
	FreshnessStale   = "stale"   // present but older than the max age
	FreshnessMissing = "missing" // no artifact on disk
)

// HealthStatus constants
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CacheFreshness describes the state of the stations.json artifact
type CacheFreshness struct {
	Path          string     `json:"path"`
	Status        string     `json:"status"`
	Enabled       bool       `json:"enabled"`
	GeneratedAt   *time.Time `json:"generatedAt,omitempty"`
	AgeSeconds    int        `json:"ageSeconds"`
	MaxAgeSeconds int        `json:"maxAgeSeconds"`
}

// HealthReport is the JSON body of GET /health
type HealthReport struct {
	Status    string         `json:"status"`
	Database  string         `json:"database"`
	Driver    string         `json:"driver"`
	Cache     CacheFreshness `json:"cache"`
	Timestamp time.Time      `json:"timestamp"`
	Error     string         `json:"error,omitempty"`
}

// CalculateFreshnessStatus returns the freshness status for an artifact of the given age.
// A negative age means no artifact exists.
func CalculateFreshnessStatus(age, maxAge time.Duration) string {
	if age < 0 {
		return FreshnessMissing
	}
	if age < maxAge {
		return FreshnessFresh
	}
	return FreshnessStale
}

// CalculateHealthStatus combines database reachability and cache state.
// A stale or missing cache only degrades service because the next request regenerates it.
func CalculateHealthStatus(databaseUp bool, cacheStatus string) string {
	if !databaseUp {
		if cacheStatus == FreshnessMissing {
			return StatusUnhealthy
		}
		// Clients still get the last artifact
		return StatusDegraded
	}
	if cacheStatus == FreshnessFresh {
		return StatusHealthy
	}
	return StatusDegraded
}
