package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frankfurt-bikes/stationmap/apps/api/models"
)

// PostgresStationRepository reads stations and route statistics through a pgx pool
type PostgresStationRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresStationRepository(databaseURL string) (*PostgresStationRepository, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStationRepository{pool: pool}, nil
}

func (r *PostgresStationRepository) Close() {
	r.pool.Close()
}

func (r *PostgresStationRepository) Driver() string {
	return "postgres"
}

func (r *PostgresStationRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresStationRepository) ListStations(ctx context.Context) ([]models.StationRow, error) {
	query := `
		SELECT station_id, station_name, latitude, longitude, startvorgaenge, endvorgaenge
		FROM stations
		ORDER BY station_id
	`

	rows, err := r.pool.Query(ctx, query)
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

func (r *PostgresStationRepository) GetStation(ctx context.Context, stationID int64) (*models.StationRow, error) {
	query := `
		SELECT station_id, station_name, latitude, longitude, startvorgaenge, endvorgaenge
		FROM stations
		WHERE station_id = $1
	`

	var s models.StationRow
	err := r.pool.QueryRow(ctx, query, stationID).Scan(
		&s.StationID, &s.StationName, &s.Latitude, &s.Longitude, &s.StartCount, &s.EndCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, stationID)
		}
		return nil, fmt.Errorf("failed to query station: %w", err)
	}
	return &s, nil
}

func (r *PostgresStationRepository) MostPopularDestination(ctx context.Context, stationID int64) (string, error) {
	query := `
		SELECT ende_station, COUNT(*) AS route_count
		FROM routes
		WHERE start_station_id = $1 AND ende_station IS NOT NULL
		GROUP BY ende_station
		ORDER BY route_count DESC, ende_station ASC
		LIMIT 1
	`

	var name string
	var count int64
	err := r.pool.QueryRow(ctx, query, stationID).Scan(&name, &count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to query most popular destination: %w", err)
	}
	return name, nil
}

func (r *PostgresStationRepository) EndNodes(ctx context.Context, stationID int64) ([]string, error) {
	query := `
		SELECT DISTINCT ende_station
		FROM routes
		WHERE start_station_id = $1 AND ende_station IS NOT NULL
		ORDER BY ende_station
	`

	rows, err := r.pool.Query(ctx, query, stationID)
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

func (r *PostgresStationRepository) DestinationCounts(ctx context.Context, stationID int64) ([]models.DestinationCount, error) {
	query := `
		SELECT ende_station, COUNT(*) AS route_count
		FROM routes
		WHERE start_station_id = $1 AND ende_station IS NOT NULL
		GROUP BY ende_station
		ORDER BY route_count DESC, ende_station ASC
	`

	rows, err := r.pool.Query(ctx, query, stationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query destination counts: %w", err)
	}
	defer rows.Close()

	counts := []models.DestinationCount{}
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("failed to scan destination count: %w", err)
		}
		counts = append(counts, models.DestinationCount{Destination: name, Count: int(count)})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating destination counts: %w", err)
	}

	return counts, nil
}
