package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"

	"github.com/skuforge/demandcast/internal/api"
	"github.com/skuforge/demandcast/internal/cache"
	"github.com/skuforge/demandcast/internal/ensemble"
	"github.com/skuforge/demandcast/internal/metrics"
	"github.com/skuforge/demandcast/internal/remote"
	"github.com/skuforge/demandcast/internal/store"
	"github.com/skuforge/demandcast/internal/validate"
	"github.com/skuforge/demandcast/pkg/otel"
)

type Server struct {
	store       store.Store
	modelCache  *cache.ModelCache[*ensemble.Fit]
	forecaster  *ensemble.Engine
	validator   *validate.Engine
	strategy    remote.Strategy
	metrics     *metrics.Metrics
	limiter     *rate.Limiter
	metricsAuth struct {
		enabled  bool
		user     string
		password string
	}
}

func main() {
	params := api.DefaultForecastParams()
	forecaster := ensemble.NewEngine(params)
	validator := validate.NewEngine(params, forecaster, getEnvInt("BATCH_WORKERS", 4))

	// Observation store backend
	var obsStore store.Store
	var err error
	switch backend := getEnv("STORE_BACKEND", "memory"); backend {
	case "memory":
		obsStore = store.NewMemoryStore(getEnv("STORE_SNAPSHOT", "data/observations.json"))
	case "redis":
		obsStore, err = store.NewRedisStore(
			getEnv("REDIS_ADDR", "localhost:6379"),
			getEnv("REDIS_PASSWORD", ""),
			getEnvInt("REDIS_DB", 0),
		)
		if err != nil {
			log.Fatalf("Failed to create Redis store: %v", err)
		}
	case "postgres":
		obsStore, err = store.NewPostgresStore(getEnv("POSTGRES_CONN", ""))
		if err != nil {
			log.Fatalf("Failed to create Postgres store: %v", err)
		}
	default:
		log.Fatalf("Unknown STORE_BACKEND: %s", backend)
	}

	// Trained-model cache: performance only, invalidated on ingest
	modelCache, err := cache.NewModelCache[*ensemble.Fit](getEnvInt("MODEL_CACHE_SIZE", 1024))
	if err != nil {
		log.Fatalf("Failed to create model cache: %v", err)
	}

	m := metrics.New()

	// Execution venue: remote service with mandatory local fallback, or local
	var strategy remote.Strategy
	if remoteURL := getEnv("REMOTE_URL", ""); remoteURL != "" {
		timeout := time.Duration(getEnvInt("REMOTE_TIMEOUT_MS", 2000)) * time.Millisecond
		strategy = remote.NewClient(remoteURL, timeout, forecaster, func() {
			m.RemoteFallbacks.Inc()
		})
		log.Printf("Remote computation venue enabled: %s (timeout %s)", remoteURL, timeout)
	} else {
		strategy = &remote.Local{Engine: forecaster}
	}

	// Tracing (optional)
	var tp *sdktrace.TracerProvider
	if getEnv("OTEL_ENABLED", "") == "true" {
		cfg := otel.DefaultConfig("demandcast")
		cfg.CollectorEndpoint = getEnv("OTEL_COLLECTOR", cfg.CollectorEndpoint)
		tp, err = otel.InitTracer(context.Background(), cfg)
		if err != nil {
			log.Fatalf("Failed to initialize tracing: %v", err)
		}
	}

	tokenRate := getEnvInt("TOKEN_RATE", 100)
	srv := &Server{
		store:      obsStore,
		modelCache: modelCache,
		forecaster: forecaster,
		validator:  validator,
		strategy:   strategy,
		metrics:    m,
		limiter:    rate.NewLimiter(rate.Limit(tokenRate), tokenRate*2),
	}
	srv.metricsAuth.enabled = getEnv("METRICS_USER", "") != ""
	srv.metricsAuth.user = getEnv("METRICS_USER", "")
	srv.metricsAuth.password = getEnv("METRICS_PASS", "")

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/observations", srv.handleObservations)
	mux.HandleFunc("/v1/forecast", srv.handleForecast)
	mux.HandleFunc("/v1/accuracy", srv.handleAccuracy)
	mux.HandleFunc("/v1/accuracy/batch", srv.handleAccuracyBatch)
	mux.HandleFunc("/v1/correlation", srv.handleCorrelation)
	mux.Handle("/metrics", srv.metricsHandler())
	mux.HandleFunc("/health", handleHealth)

	port := getEnv("PORT", "8080")
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdown
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := obsStore.Close(); err != nil {
		log.Printf("Error closing observation store: %v", err)
	}
	if tp != nil {
		if err := otel.Shutdown(ctx, tp); err != nil {
			log.Printf("Error shutting down tracing: %v", err)
		}
	}

	log.Println("Server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
