// Package config loads the API server configuration.
//
// Values come from built-in defaults, then an optional YAML file named by
// CONFIG_FILE, then environment variables. The result is validated with struct tags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// MapConfig controls the initial view of the renderer
type MapConfig struct {
	CenterLat float64 `yaml:"centerLat" validate:"gte=-90,lte=90"`
	CenterLon float64 `yaml:"centerLon" validate:"gte=-180,lte=180"`
	Zoom      int     `yaml:"zoom" validate:"gte=1,lte=19"`
	// Some station exports store longitude in the Latitude column and vice versa
	SwapCoordinates bool `yaml:"swapCoordinates"`
}

// Config holds all configuration for the API server
type Config struct {
	Port string `yaml:"port" validate:"required,numeric"`

	// Database
	DBDriver     string `yaml:"dbDriver" validate:"oneof=sqlite mysql postgres"`
	SQLitePath   string `yaml:"sqlitePath" validate:"required_if=DBDriver sqlite"`
	MySQLDSN     string `yaml:"mysqlDsn" validate:"required_if=DBDriver mysql"`
	DatabaseURL  string `yaml:"databaseUrl" validate:"required_if=DBDriver postgres"`
	QueryTimeout int    `yaml:"queryTimeoutSeconds" validate:"gte=1"`

	// Station cache
	CacheFile          string `yaml:"cacheFile" validate:"required"`
	CacheEnabled       bool   `yaml:"cacheEnabled"`
	CacheMaxAgeSeconds int    `yaml:"cacheMaxAgeSeconds" validate:"gte=1"`
	CacheWarmMinutes   int    `yaml:"cacheWarmMinutes" validate:"gte=0"`

	// HTTP
	AllowedOrigins []string `yaml:"allowedOrigins" validate:"min=1,dive,required"`
	StaticDir      string   `yaml:"staticDir"`

	Map MapConfig `yaml:"map"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Port:               "8081",
		DBDriver:           DriverSQLite,
		SQLitePath:         "../../data/bikes.db",
		QueryTimeout:       30,
		CacheFile:          "../../data/cache/stations.json",
		CacheEnabled:       true,
		CacheMaxAgeSeconds: 3600,
		AllowedOrigins:     []string{"http://localhost:5173"},
		Map: MapConfig{
			CenterLat: 50.1109,
			CenterLon: 8.6821,
			Zoom:      13,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file and the environment
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// CacheMaxAge returns the cache freshness window
func (c *Config) CacheMaxAge() time.Duration {
	return time.Duration(c.CacheMaxAgeSeconds) * time.Second
}

// CacheWarmInterval returns the background refresh interval, 0 when disabled
func (c *Config) CacheWarmInterval() time.Duration {
	return time.Duration(c.CacheWarmMinutes) * time.Minute
}

// QueryTimeoutDuration bounds a single aggregation run
func (c *Config) QueryTimeoutDuration() time.Duration {
	return time.Duration(c.QueryTimeout) * time.Second
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)

	c.DBDriver = strings.ToLower(getEnv("DB_DRIVER", c.DBDriver))
	c.SQLitePath = getEnv("SQLITE_DATABASE", c.SQLitePath)
	c.MySQLDSN = getEnv("MYSQL_DSN", c.MySQLDSN)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.QueryTimeout = getEnvInt("QUERY_TIMEOUT_SECONDS", c.QueryTimeout)

	c.CacheFile = getEnv("CACHE_FILE", c.CacheFile)
	c.CacheEnabled = getEnvBool("CACHE_ENABLED", c.CacheEnabled)
	c.CacheMaxAgeSeconds = getEnvInt("CACHE_MAX_AGE_SECONDS", c.CacheMaxAgeSeconds)
	c.CacheWarmMinutes = getEnvInt("CACHE_WARM_MINUTES", c.CacheWarmMinutes)

	if origins := getEnv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}
	c.StaticDir = getEnv("STATIC_DIR", c.StaticDir)

	c.Map.CenterLat = getEnvFloat("MAP_CENTER_LAT", c.Map.CenterLat)
	c.Map.CenterLon = getEnvFloat("MAP_CENTER_LON", c.Map.CenterLon)
	c.Map.Zoom = getEnvInt("MAP_ZOOM", c.Map.Zoom)
	c.Map.SwapCoordinates = getEnvBool("MAP_SWAP_COORDINATES", c.Map.SwapCoordinates)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
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

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
