package repository

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteDB wraps a SQL database connection for SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens the station database. The API only aggregates, so it opens
// with readOnly set: every connection runs with query_only and a busy timeout,
// which lets reads wait out an importer commit instead of failing with SQLITE_BUSY.
// readOnly=false is for seeding fixtures.
func NewSQLiteDB(dbPath string, readOnly bool) (*SQLiteDB, error) {
	dsn := dbPath + "?_pragma=busy_timeout(5000)"
	if readOnly {
		dsn += "&_pragma=query_only(1)"
	} else {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open station database: %w", err)
	}

	// Aggregation issues its queries one after another, so a small pool covers
	// concurrent page loads plus health checks.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	// Recycle so a file swapped by the importer is reopened
	db.SetConnMaxLifetime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach station database %s: %w", dbPath, err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Conn returns the underlying pool for the station repository
func (s *SQLiteDB) Conn() *sql.DB {
	return s.db
}

// NewSQLiteStationRepository creates a station repository backed by SQLite
func NewSQLiteStationRepository(db *sql.DB) *SQLStationRepository {
	return &SQLStationRepository{db: db, driver: "sqlite"}
}
