package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/frankfurt-bikes/stationmap/apps/api/models"
)

// ErrNotFound is returned when a station does not exist
var ErrNotFound = errors.New("station not found")

// Queries shared by the database/sql backends (SQLite and MySQL both use ? placeholders).
// Ties on route count are broken by destination name so the pick is stable across drivers.
const (
	listStationsQuery = `
		SELECT Station_ID, Station_Name, Latitude, Longitude, Startvorgaenge, Endvorgaenge
		FROM stations
		ORDER BY Station_ID
	`

	getStationQuery = `
		SELECT Station_ID, Station_Name, Latitude, Longitude, Startvorgaenge, Endvorgaenge
		FROM stations
		WHERE Station_ID = ?
	`

	mostPopularQuery = `
		SELECT Ende_Station, COUNT(*) AS route_count
		FROM routes
		WHERE Start_Station_ID = ? AND Ende_Station IS NOT NULL
		GROUP BY Ende_Station
		ORDER BY route_count DESC, Ende_Station ASC
		LIMIT 1
	`

	endNodesQuery = `
		SELECT DISTINCT Ende_Station
		FROM routes
		WHERE Start_Station_ID = ? AND Ende_Station IS NOT NULL
		ORDER BY Ende_Station
	`

	destinationCountsQuery = `
		SELECT Ende_Station, COUNT(*) AS route_count
		FROM routes
		WHERE Start_Station_ID = ? AND Ende_Station IS NOT NULL
		GROUP BY Ende_Station
		ORDER BY route_count DESC, Ende_Station ASC
	`
)

// SQLStationRepository reads stations and route statistics through database/sql.
// It backs both the SQLite and MySQL drivers.
type SQLStationRepository struct {
	db     *sql.DB
	driver string
}

// Driver returns the name of the underlying database driver
func (r *SQLStationRepository) Driver() string {
	return r.driver
}

// Ping checks database connectivity
func (r *SQLStationRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListStations returns every station row ordered by ID
func (r *SQLStationRepository) ListStations(ctx context.Context) ([]models.StationRow, error) {
	rows, err := r.db.QueryContext(ctx, listStationsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	var stations []models.StationRow
	for rows.Next() {
		var s models.StationRow
		if err := rows.Scan(&s.StationID, &s.StationName, &s.Latitude, &s.Longitude, &s.StartCount, &s.EndCount); err != nil {
			return nil, fmt.Errorf("failed to scan station row: %w", err)
		}
		stations = append(stations, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating station rows: %w", err)
	}

	return stations, nil
}

// GetStation returns a single station row, or ErrNotFound
func (r *SQLStationRepository) GetStation(ctx context.Context, stationID int64) (*models.StationRow, error) {
	var s models.StationRow
	err := r.db.QueryRowContext(ctx, getStationQuery, stationID).Scan(
		&s.StationID, &s.StationName, &s.Latitude, &s.Longitude, &s.StartCount, &s.EndCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, stationID)
		}
		return nil, fmt.Errorf("failed to query station: %w", err)
	}
	return &s, nil
}

// MostPopularDestination returns the destination with the most routes from the station.
// It returns "" when the station has no outgoing routes.
func (r *SQLStationRepository) MostPopularDestination(ctx context.Context, stationID int64) (string, error) {
	var name string
	var count int
	err := r.db.QueryRowContext(ctx, mostPopularQuery, stationID).Scan(&name, &count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to query most popular destination: %w", err)
	}
	return name, nil
}

// EndNodes returns the distinct destination names reachable from the station
func (r *SQLStationRepository) EndNodes(ctx context.Context, stationID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, endNodesQuery, stationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query end nodes: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan end node: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating end nodes: %w", err)
	}

	return names, nil
}

// DestinationCounts returns the route count per destination, most popular first
func (r *SQLStationRepository) DestinationCounts(ctx context.Context, stationID int64) ([]models.DestinationCount, error) {
	rows, err := r.db.QueryContext(ctx, destinationCountsQuery, stationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query destination counts: %w", err)
	}
	defer rows.Close()

	counts := []models.DestinationCount{}
	for rows.Next() {
		var dc models.DestinationCount
		if err := rows.Scan(&dc.Destination, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan destination count: %w", err)
		}
		counts = append(counts, dc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating destination counts: %w", err)
	}

	return counts, nil
}
