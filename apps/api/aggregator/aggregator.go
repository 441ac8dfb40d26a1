// Package aggregator joins station rows with their per-station route statistics.
package aggregator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/frankfurt-bikes/stationmap/apps/api/models"
)

// Repository defines the read operations the aggregator needs
type Repository interface {
	ListStations(ctx context.Context) ([]models.StationRow, error)
	GetStation(ctx context.Context, stationID int64) (*models.StationRow, error)
	MostPopularDestination(ctx context.Context, stationID int64) (string, error)
	EndNodes(ctx context.Context, stationID int64) ([]string, error)
	DestinationCounts(ctx context.Context, stationID int64) ([]models.DestinationCount, error)
}

// Aggregator computes the station records written into the cache artifact
type Aggregator struct {
	repo Repository
}

// New creates an Aggregator over the given repository
func New(repo Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// Summarize returns the most popular destination and the distinct reachable
// destinations for one station. A station without outgoing routes yields
// models.NoDestination and an empty list.
func (a *Aggregator) Summarize(ctx context.Context, stationID int64) (string, []string, error) {
	mostPopular, err := a.repo.MostPopularDestination(ctx, stationID)
	if err != nil {
		return "", nil, fmt.Errorf("station %d: %w", stationID, err)
	}
	if mostPopular == "" {
		mostPopular = models.NoDestination
	}

	endNodes, err := a.repo.EndNodes(ctx, stationID)
	if err != nil {
		return "", nil, fmt.Errorf("station %d: %w", stationID, err)
	}
	if endNodes == nil {
		endNodes = []string{}
	}

	return mostPopular, endNodes, nil
}

// Build reads every station and annotates it with its route statistics.
// The result is ordered like ListStations (by station ID).
func (a *Aggregator) Build(ctx context.Context) ([]models.Station, error) {
	start := time.Now()

	rows, err := a.repo.ListStations(ctx)
	if err != nil {
		return nil, err
	}

	stations := make([]models.Station, 0, len(rows))
	for _, row := range rows {
		mostPopular, endNodes, err := a.Summarize(ctx, row.StationID)
		if err != nil {
			return nil, err
		}
		stations = append(stations, models.NewStation(row, mostPopular, endNodes))
	}

	log.Printf("Aggregated %d stations in %v", len(stations), time.Since(start))
	return stations, nil
}

// Destinations returns the per-destination route breakdown for one station.
// It returns an error wrapping repository.ErrNotFound for unknown stations.
func (a *Aggregator) Destinations(ctx context.Context, stationID int64) (*models.StationDestinations, error) {
	if _, err := a.repo.GetStation(ctx, stationID); err != nil {
		return nil, err
	}

	counts, err := a.repo.DestinationCounts(ctx, stationID)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, c := range counts {
		total += c.Count
	}

	return &models.StationDestinations{
		StationID:    stationID,
		Destinations: counts,
		TotalRoutes:  total,
	}, nil
}
