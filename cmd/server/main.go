package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/asakaida/tollgate/internal/handlers"
	"github.com/asakaida/tollgate/internal/infrastructure/cache/plancache"
	"github.com/asakaida/tollgate/internal/infrastructure/config"
	"github.com/asakaida/tollgate/internal/infrastructure/database"
	"github.com/asakaida/tollgate/internal/infrastructure/metrics"
	"github.com/asakaida/tollgate/internal/repositories/postgres"
	"github.com/asakaida/tollgate/internal/services"
	"github.com/asakaida/tollgate/internal/services/access"
)

const (
	defaultEnv = "dev"

	metricsUpdateInterval = 10 * time.Second
)

func main() {
	// Get environment from ENV variable or use default
	env := os.Getenv("ENV")
	if env == "" {
		env = defaultEnv
	}

	// Initialize configuration
	if err := config.InitConfig(env); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()

	log.Println("Connected to database")

	// Initialize plan cache
	var planCache *plancache.Cache
	if cfg.Cache.Enabled {
		planCache = plancache.New(&plancache.Config{
			MaxEntries:    cfg.Cache.MaxEntries,
			TTL:           time.Duration(cfg.Cache.TTLMinutes) * time.Minute,
			EnableMetrics: cfg.Cache.Metrics,
		})
		log.Printf("Plan cache enabled: max %d entries, TTL %dm", cfg.Cache.MaxEntries, cfg.Cache.TTLMinutes)
	}

	// Initialize repositories
	planRepo := postgres.NewPostgresPlanRepository(pg.DB)
	subscriptionRepo := postgres.NewPostgresSubscriptionRepository(pg.DB)
	permissionRepo := postgres.NewPostgresPermissionRepository(pg.DB)

	// Initialize services
	var catalog services.CatalogServiceInterface
	var evaluator access.EvaluatorInterface
	if planCache != nil {
		catalog = services.NewCatalogServiceWithCache(planRepo, planCache)
		evaluator = access.NewEvaluatorWithCache(subscriptionRepo, planRepo, planCache)
	} else {
		catalog = services.NewCatalogService(planRepo)
		evaluator = access.NewEvaluator(subscriptionRepo, planRepo)
	}
	ledger := services.NewLedgerService(subscriptionRepo, planRepo)
	registry := services.NewRegistryService(permissionRepo)

	// Initialize metrics
	collector := metrics.NewCollector()
	if planCache != nil {
		collector.SetPlanCache(planCache)
	}
	exporter := metrics.NewPrometheusExporter(collector)

	router := handlers.NewRouter(&handlers.RouterConfig{
		Catalog:   catalog,
		Ledger:    ledger,
		Registry:  registry,
		Evaluator: evaluator,
		Health:    pg,
		Collector: collector,
		Exporter:  exporter,
	})

	apiServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	// Periodically refresh gauge metrics from the collector
	updaterCtx, stopUpdater := context.WithCancel(context.Background())
	defer stopUpdater()
	go func() {
		ticker := time.NewTicker(metricsUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				exporter.Update()
			case <-updaterCtx.Done():
				return
			}
		}
	}()

	// Start servers in goroutines
	serverErrors := make(chan error, 2)
	go func() {
		log.Printf("HTTP server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	go func() {
		log.Printf("Metrics server listening on %s", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		log.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		log.Println("Initiating graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Metrics server shutdown error: %v", err)
		}

		stopUpdater()

		// Close database connection
		if err := pg.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
		}

		log.Println("Shutdown complete")
	}
}
