package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLDB wraps a SQL database connection for MySQL
type MySQLDB struct {
	db *sql.DB
}

// NewMySQLDB opens a MySQL connection pool from a DSN
// (user:pass@tcp(host:3306)/dbname). parseTime is forced on.
func NewMySQLDB(dsn string) (*MySQLDB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(10 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &MySQLDB{db: db}, nil
}

// Close closes the database connection
func (m *MySQLDB) Close() error {
	return m.db.Close()
}

// Conn returns the underlying pool for the station repository
func (m *MySQLDB) Conn() *sql.DB {
	return m.db
}

// NewMySQLStationRepository creates a station repository backed by MySQL
func NewMySQLStationRepository(db *sql.DB) *SQLStationRepository {
	return &SQLStationRepository{db: db, driver: "mysql"}
}
