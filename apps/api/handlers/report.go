package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/frankfurt-bikes/stationmap/apps/api/models"
)

// GetUsageReport handles GET /api/stations/report.pdf
// Renders the cached station list as a printable table, busiest stations first
func (h *StationsHandler) GetUsageReport(w http.ResponseWriter, r *http.Request) {
	artifact, source, err := h.load(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to retrieve stations", err)
		return
	}

	buf, err := renderUsageReport(artifact.Stations, artifact.GeneratedAt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render report", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="station-usage.pdf"`)
	w.Header().Set("X-Cache-Status", source)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// renderUsageReport draws one row per station sorted by start count
func renderUsageReport(stations []models.Station, generatedAt time.Time) (*bytes.Buffer, error) {
	sorted := make([]models.Station, len(stations))
	copy(sorted, stations)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StartCount != sorted[j].StartCount {
			return sorted[i].StartCount > sorted[j].StartCount
		}
		return sorted[i].StationID < sorted[j].StationID
	})

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Station usage", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Station usage")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s, %d stations", generatedAt.UTC().Format("2006-01-02 15:04 MST"), len(sorted)))
	pdf.Ln(10)

	widths := []float64{15, 65, 20, 20, 70}
	headers := []string{"ID", "Station", "Starts", "Ends", "Most popular destination"}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, hdr := range headers {
		pdf.CellFormat(widths[i], 7, hdr, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, s := range sorted {
		pdf.CellFormat(widths[0], 6, fmt.Sprintf("%d", s.StationID), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(truncate(s.StationName, 38)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%d", s.StartCount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%d", s.EndCount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, tr(truncate(s.MostPopular, 42)), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return &buf, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
