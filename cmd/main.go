// File: storefront-service/cmd/main.go
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"storefront-service/internal/api"
	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/config"
	"storefront-service/internal/metrics"
	"storefront-service/internal/store"
)

const serviceName = "StorefrontService"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found or failed to load, relying on system environment")
	}

	// --- Configuration Loading ---
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Error loading configuration")
	}
	setupLogger(cfg)
	log.Infof("Configuration loaded for APP_ENV: %s, LogLevel: %s", cfg.AppEnv, cfg.LogLevel)

	// --- Database Connection ---
	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database connection")
	}
	if err := db.PingContext(context.Background()); err != nil {
		log.WithError(err).Fatal("Failed to ping database")
	}
	log.Info("Database connection established successfully")

	cartStore := store.NewPostgresStore(db)
	if err := cartStore.EnsureSchema(context.Background()); err != nil {
		log.WithError(err).Fatal("Failed to ensure cart schema")
	}

	// --- Core components ---
	storefrontMtrx := metrics.NewStorefrontMetrics()
	catalogStore := catalog.NewStore()
	upstream := catalog.NewClient(cfg.Upstream.ProductsURL, cfg.Upstream.CategoriesURL, cfg.Upstream.Timeout)
	pipeline := catalog.NewSearchPipeline(catalogStore, cfg.Search.DebounceInterval)

	// Initial catalog fetch: both requests must succeed, partial success is
	// not supported. On failure the catalog endpoints answer 503 until a
	// manual refresh succeeds.
	loadCatalog(cfg, upstream, catalogStore, pipeline, storefrontMtrx)

	janitor, err := cart.NewJanitor(cartStore, cfg.Cart.CleanupSpec, cfg.Cart.Retention)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize cart janitor")
	}
	janitor.Start()

	// --- HTTP server ---
	httpAPIHandler := api.NewHTTPHandler(catalogStore, upstream, pipeline, cartStore, storefrontMtrx)

	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, httpAPIHandler)
	registerHealthCheck(httpRouter, db, catalogStore)
	httpRouter.Handle("/metrics", promhttp.Handler())
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		log.Infof("HTTP server listening on port %s", cfg.HttpServer.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server ListenAndServe error")
		}
		log.Info("HTTP server has stopped")
	}()

	// --- Graceful Shutdown ---
	waitForShutdown(httpServer, janitor, pipeline, cartStore)
	log.Info("Service shutdown sequence finished")
}

func setupLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Unknown log level %q, falling back to info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.AppEnv == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

func loadCatalog(
	cfg *config.Config,
	upstream *catalog.Client,
	catalogStore *catalog.Store,
	pipeline *catalog.SearchPipeline,
	storefrontMtrx *metrics.StorefrontMetrics,
) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Upstream.Timeout)
	defer cancel()

	products, categories, err := upstream.FetchCatalog(ctx)
	if err != nil {
		storefrontMtrx.CatalogLoad(false)
		log.WithError(err).Error("Initial catalog fetch failed; catalog endpoints unavailable until refresh")
		return
	}
	catalogStore.Load(products, categories)
	pipeline.Refresh()
	storefrontMtrx.CatalogLoad(true)
	log.Infof("Catalog loaded: %d products, %d categories", len(products), len(categories))
}

func setupBaseMiddleware(router *chi.Mux, handler *api.HTTPHandler) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(handler.MetricsMiddleware)
	log.Info("Base HTTP middleware registered")
}

func registerHealthCheck(router *chi.Mux, db *sql.DB, catalogStore *catalog.Store) {
	healthPath := "/api/v1/healthz"
	router.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "healthy"
		if err := db.PingContext(ctx); err != nil {
			dbStatus = "unhealthy"
			log.WithError(err).Warn("Health check DB ping failed")
		}
		catalogStatus := "loaded"
		if !catalogStore.Loaded() {
			catalogStatus = "unavailable"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "healthy",
			"serviceName": serviceName,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"database":    dbStatus,
			"catalog":     catalogStatus,
		})
	})
	log.Infof("HTTP health check registered at %s", healthPath)
}

func waitForShutdown(
	httpServer *http.Server,
	janitor *cart.Janitor,
	pipeline *catalog.SearchPipeline,
	cartStore *store.PostgresStore,
) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-sigChan
	log.Infof("Received signal: %s. Starting graceful shutdown...", receivedSignal)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	janitor.Stop()
	pipeline.Stop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server graceful shutdown failed")
	} else {
		log.Info("HTTP server gracefully shut down")
	}

	if err := cartStore.Close(); err != nil {
		log.WithError(err).Warn("Error closing database connection")
	}

	log.Info("Graceful shutdown sequence completed")
}
