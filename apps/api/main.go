package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/frankfurt-bikes/stationmap/apps/api/aggregator"
	"github.com/frankfurt-bikes/stationmap/apps/api/cache"
	"github.com/frankfurt-bikes/stationmap/apps/api/config"
	"github.com/frankfurt-bikes/stationmap/apps/api/handlers"
	"github.com/frankfurt-bikes/stationmap/apps/api/repository"
	"github.com/frankfurt-bikes/stationmap/apps/api/web"
)

// stationStore is what every repository backend provides
type stationStore interface {
	aggregator.Repository
	handlers.DatabasePinger
}

func main() {
	refreshOnly := flag.Bool("refresh", false, "Regenerate the station cache and exit")
	flag.Parse()

	// Load .env files from repository root
	// Load base .env first, then .env.local (which overrides for local development)
	_ = godotenv.Load("../../.env")
	_ = godotenv.Overload("../../.env.local") // Overload forces override of existing values

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s database: %v", cfg.DBDriver, err)
	}
	defer closeStore()

	log.Printf("%s database connection established", cfg.DBDriver)

	agg := aggregator.New(store)
	stationCache := cache.New(cfg.CacheFile, cfg.CacheMaxAge(), cfg.CacheEnabled)
	stationsHandler := handlers.NewStationsHandler(agg, stationCache, cfg.QueryTimeoutDuration())
	healthHandler := handlers.NewHealthHandler(store, stationCache)

	if *refreshOnly {
		artifact, err := stationsHandler.Refresh(context.Background())
		if err != nil {
			closeStore()
			log.Fatalf("Cache refresh failed: %v", err)
		}
		log.Printf("Cache refreshed: %d stations", len(artifact.Stations))
		return
	}

	if !cfg.CacheEnabled {
		log.Println("Station cache disabled, every request aggregates the database")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if interval := cfg.CacheWarmInterval(); interval > 0 {
		go warmCache(ctx, stationsHandler, interval)
	}

	page, err := web.New(web.MapView{
		CenterLat:       cfg.Map.CenterLat,
		CenterLon:       cfg.Map.CenterLon,
		Zoom:            cfg.Map.Zoom,
		DataURL:         "/cache/stations.json",
		SwapCoordinates: cfg.Map.SwapCoordinates,
	}, cfg.StaticDir)
	if err != nil {
		log.Fatalf("Failed to load renderer assets: %v", err)
	}

	// Setup router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Cache-Status"},
		AllowCredentials: true,
	}))

	r.Get("/health", healthHandler.GetHealth)
	r.Get("/healthz", healthHandler.GetLiveness)

	// Legacy ping endpoint
	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})

	// Cache artifact, fetched by the map page
	r.Get("/cache/stations.json", stationsHandler.GetCacheFile)

	// Station API routes
	r.Get("/api/stations", stationsHandler.GetAllStations)
	r.Get("/api/stations/report.pdf", stationsHandler.GetUsageReport)
	r.Get("/api/stations/{stationId}", stationsHandler.GetStationByID)
	r.Get("/api/stations/{stationId}/destinations", stationsHandler.GetStationDestinations)

	// Map page and its assets
	r.Handle("/*", page)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("API server starting on :%s", cfg.Port)
	log.Println("Station endpoints:")
	log.Println("  GET /cache/stations.json")
	log.Println("  GET /api/stations")
	log.Println("  GET /api/stations/{stationId}")
	log.Println("  GET /api/stations/{stationId}/destinations")
	log.Println("  GET /api/stations/report.pdf")
	log.Println("Health:")
	log.Println("  GET /health (with database check)")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	err = serve(srv, sig, 10*time.Second)
	cancel()
	if err != nil {
		log.Printf("Server failed: %v", err)
		// os.Exit skips deferred calls
		closeStore()
		os.Exit(1)
	}
	log.Println("Goodbye!")
}

// serve runs srv until a signal arrives or ListenAndServe fails, then shuts it
// down gracefully. The listener error is returned so the caller can release
// the database before exiting.
func serve(srv *http.Server, stop <-chan os.Signal, grace time.Duration) error {
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var failed error
	select {
	case <-stop:
		log.Println("Shutting down...")
	case failed = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	return failed
}

// openStore connects the repository selected by DB_DRIVER
func openStore(cfg *config.Config) (stationStore, func(), error) {
	switch cfg.DBDriver {
	case config.DriverMySQL:
		log.Println("Connecting to MySQL database")
		mysqlDB, err := repository.NewMySQLDB(cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewMySQLStationRepository(mysqlDB.Conn()), func() { mysqlDB.Close() }, nil

	case config.DriverPostgres:
		log.Println("Connecting to PostgreSQL database")
		repo, err := repository.NewPostgresStationRepository(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil

	default:
		log.Printf("Connecting to SQLite database: %s", cfg.SQLitePath)
		sqliteDB, err := repository.NewSQLiteDB(cfg.SQLitePath, true)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLiteStationRepository(sqliteDB.Conn()), func() { sqliteDB.Close() }, nil
	}
}

// warmCache regenerates the artifact on a ticker so requests rarely pay for aggregation
func warmCache(ctx context.Context, h *handlers.StationsHandler, interval time.Duration) {
	log.Printf("Cache warm loop running every %v", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := h.Refresh(ctx); err != nil {
				log.Printf("Cache warm failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("Cache warm loop stopped")
			return
		}
	}
}
