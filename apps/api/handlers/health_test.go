package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/frankfurt-bikes/stationmap/apps/api/models"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context) error { return f.err }
func (f fakePinger) Driver() string                 { return "sqlite" }

type fakeInspector struct {
	status string
}

func (f fakeInspector) Freshness() models.CacheFreshness {
	return models.CacheFreshness{Path: "stations.json", Status: f.status, Enabled: true, MaxAgeSeconds: 3600}
}

func TestGetHealth(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		cache      string
		wantCode   int
		wantStatus string
		wantDB     string
	}{
		{"healthy", nil, models.FreshnessFresh, http.StatusOK, models.StatusHealthy, "connected"},
		{"stale cache", nil, models.FreshnessStale, http.StatusOK, models.StatusDegraded, "connected"},
		{"db down with artifact", errors.New("dial tcp: refused"), models.FreshnessStale, http.StatusServiceUnavailable, models.StatusDegraded, "disconnected"},
		{"db down without artifact", errors.New("dial tcp: refused"), models.FreshnessMissing, http.StatusServiceUnavailable, models.StatusUnhealthy, "disconnected"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler(fakePinger{err: tc.pingErr}, fakeInspector{status: tc.cache})

			rec := httptest.NewRecorder()
			h.GetHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tc.wantCode {
				t.Errorf("status code = %d, expected %d", rec.Code, tc.wantCode)
			}

			var report models.HealthReport
			if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
				t.Fatalf("failed to decode report: %v", err)
			}
			if report.Status != tc.wantStatus {
				t.Errorf("status = %q, expected %q", report.Status, tc.wantStatus)
			}
			if report.Database != tc.wantDB {
				t.Errorf("database = %q, expected %q", report.Database, tc.wantDB)
			}
			if report.Driver != "sqlite" {
				t.Errorf("driver = %q, expected sqlite", report.Driver)
			}
		})
	}
}

func TestGetLiveness(t *testing.T) {
	h := NewHealthHandler(fakePinger{}, fakeInspector{})
	rec := httptest.NewRecorder()
	h.GetLiveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("liveness = %d %q", rec.Code, rec.Body.String())
	}
}
