package config

import (
	"os"
	"strconv"
)

// Config holds the defaults for the trip importer. Command line flags override them.
type Config struct {
	// Database
	Driver     string
	SQLitePath string
	MySQLDSN   string

	// Input files
	StationsCSV string
	TripsCSV    string

	// API cache artifact removed after a successful import
	CacheFile       string
	InvalidateCache bool
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	cfg := &Config{
		Driver:     getEnv("IMPORT_DRIVER", "sqlite"),
		SQLitePath: getEnv("SQLITE_DATABASE", "../../data/bikes.db"),
		MySQLDSN:   getEnv("MYSQL_DSN", ""),

		StationsCSV: getEnv("STATIONS_CSV", "../../data/stations.csv"),
		TripsCSV:    getEnv("TRIPS_CSV", "../../data/trips.csv"),

		CacheFile:       getEnv("CACHE_FILE", "../../data/cache/stations.json"),
		InvalidateCache: getEnvBool("INVALIDATE_CACHE", true),
	}

	return cfg
}

// DSNFor returns the configured connection string for a driver
func (c *Config) DSNFor(driver string) string {
	if driver == "mysql" {
		return c.MySQLDSN
	}
	return c.SQLitePath
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
