package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Station represents a station row for database insertion
type Station struct {
	StationID   int64
	StationName string
	Latitude    float64
	Longitude   float64
}

// Trip represents one rental for database insertion
type Trip struct {
	StartStationID int64
	EndStationID   int64
}

// ImportRun is one row of import_runs
type ImportRun struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	StationCount int
	RouteCount   int
	SkippedTrips int
	Source       string
}

// ReplaceAll swaps the station and route tables for the given data in a single
// transaction, recomputes the usage counters and records the run. Trips that
// reference an unknown station are skipped and counted in the result.
func (db *DB) ReplaceAll(ctx context.Context, source string, stations []Station, trips []Trip) (*ImportRun, error) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	run := &ImportRun{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Source:    source,
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Routes first so no route outlives its station
	if _, err := tx.ExecContext(ctx, "DELETE FROM routes"); err != nil {
		return nil, fmt.Errorf("failed to clear routes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM stations"); err != nil {
		return nil, fmt.Errorf("failed to clear stations: %w", err)
	}

	names, err := insertStations(ctx, tx, stations)
	if err != nil {
		return nil, err
	}
	run.StationCount = len(names)

	run.RouteCount, run.SkippedTrips, err = insertRoutes(ctx, tx, names, trips)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE stations SET
			Startvorgaenge = (SELECT COUNT(*) FROM routes WHERE routes.Start_Station_ID = stations.Station_ID),
			Endvorgaenge = (SELECT COUNT(*) FROM routes WHERE routes.Ende_Station_ID = stations.Station_ID)
	`); err != nil {
		return nil, fmt.Errorf("failed to recount station usage: %w", err)
	}

	run.FinishedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO import_runs (Run_ID, Started_At, Finished_At, Station_Count, Route_Count, Source) VALUES (?, ?, ?, ?, ?, ?)",
		run.RunID, run.StartedAt.Format(time.RFC3339), run.FinishedAt.Format(time.RFC3339),
		run.StationCount, run.RouteCount, run.Source,
	); err != nil {
		return nil, fmt.Errorf("failed to record import run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	if run.SkippedTrips > 0 {
		log.Printf("Warning: skipped %d trips referencing unknown stations", run.SkippedTrips)
	}
	return run, nil
}

func insertStations(ctx context.Context, tx *sql.Tx, stations []Station) (map[int64]string, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stations (Station_ID, Station_Name, Latitude, Longitude, Startvorgaenge, Endvorgaenge)
		VALUES (?, ?, ?, ?, 0, 0)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare station insert: %w", err)
	}
	defer stmt.Close()

	names := make(map[int64]string, len(stations))
	for _, s := range stations {
		if _, err := stmt.ExecContext(ctx, s.StationID, s.StationName, s.Latitude, s.Longitude); err != nil {
			return nil, fmt.Errorf("failed to insert station %d: %w", s.StationID, err)
		}
		names[s.StationID] = s.StationName
	}
	return names, nil
}

// insertRoutes stores each trip with the end station's name denormalized into
// Ende_Station, which is what the API groups by.
func insertRoutes(ctx context.Context, tx *sql.Tx, names map[int64]string, trips []Trip) (int, int, error) {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO routes (Start_Station_ID, Ende_Station_ID, Ende_Station) VALUES (?, ?, ?)")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare route insert: %w", err)
	}
	defer stmt.Close()

	inserted, skipped := 0, 0
	for _, t := range trips {
		endName, endOK := names[t.EndStationID]
		if _, startOK := names[t.StartStationID]; !startOK || !endOK {
			skipped++
			continue
		}
		if _, err := stmt.ExecContext(ctx, t.StartStationID, t.EndStationID, endName); err != nil {
			return 0, 0, fmt.Errorf("failed to insert route %d->%d: %w", t.StartStationID, t.EndStationID, err)
		}
		inserted++
	}
	return inserted, skipped, nil
}

// LastImport returns the most recent import run, or nil if nothing was imported yet
func (db *DB) LastImport(ctx context.Context) (*ImportRun, error) {
	var (
		run               ImportRun
		started, finished string
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT Run_ID, Started_At, Finished_At, Station_Count, Route_Count, Source
		FROM import_runs
		ORDER BY Finished_At DESC
		LIMIT 1
	`).Scan(&run.RunID, &started, &finished, &run.StationCount, &run.RouteCount, &run.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last import: %w", err)
	}

	if run.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return nil, fmt.Errorf("malformed Started_At %q in import run %s: %w", started, run.RunID, err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
		return nil, fmt.Errorf("malformed Finished_At %q in import run %s: %w", finished, run.RunID, err)
	}
	return &run, nil
}
