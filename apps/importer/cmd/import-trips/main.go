package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/frankfurt-bikes/stationmap/apps/importer/internal/cachefile"
	"github.com/frankfurt-bikes/stationmap/apps/importer/internal/config"
	"github.com/frankfurt-bikes/stationmap/apps/importer/internal/csvdata"
	"github.com/frankfurt-bikes/stationmap/apps/importer/internal/db"
)

func main() {
	_ = godotenv.Load("../../.env")
	_ = godotenv.Overload("../../.env.local")

	cfg := config.Load()

	// Command line flags
	driver := flag.String("driver", cfg.Driver, "Target database driver (sqlite or mysql)")
	dsn := flag.String("dsn", "", "SQLite file path or MySQL DSN (default from SQLITE_DATABASE or MYSQL_DSN)")
	stationsPath := flag.String("stations", cfg.StationsCSV, "Stations CSV (station_id, station_name, latitude, longitude)")
	tripsPath := flag.String("trips", cfg.TripsCSV, "Trips CSV (start_station_id, end_station_id)")
	cacheFile := flag.String("cache-file", cfg.CacheFile, "API station cache to remove after a successful import")
	invalidate := flag.Bool("invalidate-cache", cfg.InvalidateCache, "Remove the API station cache after importing")
	flag.Parse()

	if *dsn == "" {
		*dsn = cfg.DSNFor(*driver)
	}
	if *dsn == "" {
		log.Fatalf("No DSN given for driver %s", *driver)
	}

	data, err := csvdata.Parse(*stationsPath, *tripsPath)
	if err != nil {
		log.Fatalf("Failed to parse CSV input: %v", err)
	}
	if len(data.Stations) == 0 {
		log.Fatalf("No stations found in %s, refusing to empty the database", *stationsPath)
	}

	database, err := db.Connect(*driver, *dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	// Ensure schema exists (creates tables if needed)
	ctx := context.Background()
	if err := database.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	if last, err := database.LastImport(ctx); err != nil {
		log.Printf("Warning: %v", err)
	} else if last != nil {
		log.Printf("Replacing import %s from %s (%d stations, %d routes)",
			last.RunID, last.FinishedAt.Format("2006-01-02 15:04"), last.StationCount, last.RouteCount)
	}

	// Convert parsed rows to database rows
	stations := make([]db.Station, 0, len(data.Stations))
	for _, s := range data.Stations {
		stations = append(stations, db.Station{
			StationID:   s.StationID,
			StationName: s.StationName,
			Latitude:    s.Latitude,
			Longitude:   s.Longitude,
		})
	}

	trips := make([]db.Trip, 0, len(data.Trips))
	for _, t := range data.Trips {
		trips = append(trips, db.Trip{
			StartStationID: t.StartStationID,
			EndStationID:   t.EndStationID,
		})
	}

	run, err := database.ReplaceAll(ctx, filepath.Base(*stationsPath), stations, trips)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.Printf("Imported %d stations and %d routes (run %s, %d trips skipped)",
		run.StationCount, run.RouteCount, run.RunID, run.SkippedTrips+data.SkippedTrips)

	if *invalidate && *cacheFile != "" {
		if removed, err := cachefile.Invalidate(*cacheFile); err != nil {
			log.Printf("Warning: %v", err)
		} else if removed {
			log.Printf("Removed station cache %s", *cacheFile)
		}
	}

	log.Println("Import complete!")
}
