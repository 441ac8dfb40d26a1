package db

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := Connect(DriverSQLite, filepath.Join(t.TempDir(), "bikes.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	return database
}

func testStations() []Station {
	return []Station{
		{StationID: 1, StationName: "Hauptbahnhof", Latitude: 50.1071, Longitude: 8.6638},
		{StationID: 2, StationName: "Römer", Latitude: 50.1104, Longitude: 8.6821},
		{StationID: 3, StationName: "Zoo", Latitude: 50.1153, Longitude: 8.6995},
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	if _, err := Connect("postgres", "postgres://localhost/bikes"); err == nil {
		t.Error("expected an error for an unsupported driver")
	}
}

func TestConnect_InvalidMySQLDSN(t *testing.T) {
	if _, err := Connect(DriverMySQL, "not a dsn"); err == nil {
		t.Error("expected an error for a malformed MySQL DSN")
	}
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	database := setupTestDB(t)

	if err := database.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second EnsureSchema failed: %v", err)
	}

	var tables int
	err := database.Conn().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('stations', 'routes', 'import_runs')",
	).Scan(&tables)
	if err != nil {
		t.Fatalf("failed to inspect schema: %v", err)
	}
	if tables != 3 {
		t.Errorf("expected 3 tables, got %d", tables)
	}
}

func TestReplaceAll(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	trips := []Trip{
		{StartStationID: 1, EndStationID: 2},
		{StartStationID: 1, EndStationID: 2},
		{StartStationID: 1, EndStationID: 3},
		{StartStationID: 2, EndStationID: 1},
		{StartStationID: 1, EndStationID: 99}, // unknown end
		{StartStationID: 42, EndStationID: 1}, // unknown start
	}

	run, err := database.ReplaceAll(ctx, "stations.csv", testStations(), trips)
	if err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	if run.StationCount != 3 || run.RouteCount != 4 || run.SkippedTrips != 2 {
		t.Errorf("unexpected run: %+v", run)
	}
	if run.RunID == "" {
		t.Error("run ID should be set")
	}

	tests := []struct {
		stationID  int64
		wantStarts int
		wantEnds   int
	}{
		{1, 3, 1},
		{2, 1, 2},
		{3, 0, 1},
	}
	for _, tc := range tests {
		var starts, ends int
		err := database.Conn().QueryRow(
			"SELECT Startvorgaenge, Endvorgaenge FROM stations WHERE Station_ID = ?", tc.stationID,
		).Scan(&starts, &ends)
		if err != nil {
			t.Fatalf("failed to read station %d: %v", tc.stationID, err)
		}
		if starts != tc.wantStarts || ends != tc.wantEnds {
			t.Errorf("station %d: starts=%d ends=%d, expected %d/%d",
				tc.stationID, starts, ends, tc.wantStarts, tc.wantEnds)
		}
	}

	var name string
	err = database.Conn().QueryRow(
		"SELECT Ende_Station FROM routes WHERE Start_Station_ID = 2",
	).Scan(&name)
	if err != nil {
		t.Fatalf("failed to read route: %v", err)
	}
	if name != "Hauptbahnhof" {
		t.Errorf("Ende_Station = %q, expected the end station's name", name)
	}

	last, err := database.LastImport(ctx)
	if err != nil {
		t.Fatalf("LastImport failed: %v", err)
	}
	if last == nil || last.RunID != run.RunID || last.Source != "stations.csv" {
		t.Errorf("unexpected last import: %+v", last)
	}
}

func TestReplaceAll_ReplacesPreviousData(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	if _, err := database.ReplaceAll(ctx, "first", testStations(), []Trip{{1, 2}, {2, 3}}); err != nil {
		t.Fatalf("first import failed: %v", err)
	}

	second := []Station{{StationID: 7, StationName: "Ostend", Latitude: 50.112, Longitude: 8.70}}
	if _, err := database.ReplaceAll(ctx, "second", second, nil); err != nil {
		t.Fatalf("second import failed: %v", err)
	}

	var stations, routes, runs int
	database.Conn().QueryRow("SELECT COUNT(*) FROM stations").Scan(&stations)
	database.Conn().QueryRow("SELECT COUNT(*) FROM routes").Scan(&routes)
	database.Conn().QueryRow("SELECT COUNT(*) FROM import_runs").Scan(&runs)

	if stations != 1 || routes != 0 {
		t.Errorf("expected only the second import's data, got %d stations and %d routes", stations, routes)
	}
	if runs != 2 {
		t.Errorf("expected both runs to be recorded, got %d", runs)
	}
}

func TestLastImport_Empty(t *testing.T) {
	database := setupTestDB(t)

	last, err := database.LastImport(context.Background())
	if err != nil {
		t.Fatalf("LastImport failed: %v", err)
	}
	if last != nil {
		t.Errorf("expected no import yet, got %+v", last)
	}
}

func TestLastImport_MalformedTimestamp(t *testing.T) {
	database := setupTestDB(t)

	_, err := database.Conn().Exec(`
		INSERT INTO import_runs (Run_ID, Started_At, Finished_At, Station_Count, Route_Count, Source)
		VALUES ('run-1', 'yesterday', '2025-03-01T10:00:00Z', 3, 4, 'stations.csv')
	`)
	if err != nil {
		t.Fatalf("failed to seed import run: %v", err)
	}

	last, err := database.LastImport(context.Background())
	if err == nil {
		t.Fatalf("expected an error for a malformed Started_At, got %+v", last)
	}
	if !strings.Contains(err.Error(), "Started_At") {
		t.Errorf("error should name the bad column, got %v", err)
	}
	var parseErr *time.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected a wrapped time.ParseError, got %T", err)
	}
}

func TestReplaceAll_RollsBackOnError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer conn.Close()

	database := &DB{conn: conn, driver: DriverMySQL}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM routes").WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec("DELETE FROM stations").WillReturnError(errors.New("lock wait timeout exceeded"))
	mock.ExpectRollback()

	_, err = database.ReplaceAll(context.Background(), "stations.csv", testStations(), nil)
	if err == nil || !strings.Contains(err.Error(), "failed to clear stations") {
		t.Fatalf("expected a wrapped delete error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(SchemaSQL(DriverMySQL))
	if len(stmts) != 3 {
		t.Fatalf("expected 3 MySQL statements, got %d", len(stmts))
	}
	for _, stmt := range stmts {
		if strings.HasPrefix(stmt, "--") || !strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS") {
			t.Errorf("unexpected statement: %q", stmt)
		}
	}

	if n := len(splitStatements(SchemaSQL(DriverSQLite))); n != 5 {
		t.Errorf("expected 5 SQLite statements, got %d", n)
	}
}
