// Package main is the entry point for the collection service: the
// scheduler that polls signal sources, the dashboard read API, and the
// operational endpoints.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/itsearth/pulse/internal/analytics"
	"github.com/itsearth/pulse/internal/api"
	"github.com/itsearth/pulse/internal/collector"
	"github.com/itsearth/pulse/internal/config"
	"github.com/itsearth/pulse/internal/dedup"
	"github.com/itsearth/pulse/internal/health"
	"github.com/itsearth/pulse/internal/middleware"
	"github.com/itsearth/pulse/internal/signal"
	"github.com/itsearth/pulse/internal/store"
	"github.com/itsearth/pulse/internal/tracing"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configFile := flag.String("config", "", "path to optional YAML config file")
	dev := flag.Bool("dev", false, "run with the in-memory store and simulated sources")
	flag.Parse()

	if *help {
		fmt.Println("Pulse Collection Service")
		fmt.Println()
		fmt.Println("Usage: collector [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	if *dev && cfg != nil {
		cfg.DevMode = true
		errs = cfg.Validate()
	}
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "summary", cfg.LogSummary())

	// Tracing
	tp, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "pulse-collector",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: "otlp-" + cfg.OTLPProtocol,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.TraceSampleRate,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Store: Postgres in normal operation, in-memory in dev mode.
	var (
		st        store.Store
		dbChecker api.HealthChecker
	)
	if cfg.DevMode {
		logger.Info("dev mode: using in-memory store and simulated sources")
		st = store.NewMemory(logger)
	} else {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		st = store.NewPostgres(db, logger)
		dbChecker = health.NewDBChecker(db)
	}

	// Dedup gate: Redis when configured so multiple collectors share one
	// cooldown window, otherwise process-local.
	var (
		gate         dedup.Gate
		sweeper      *dedup.Sweeper
		redisChecker api.HealthChecker
		redisClient  *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		gate = dedup.NewRedisGate(redisClient, cfg.CooldownWindow, logger)
		redisChecker = health.NewRedisChecker(redisClient)
	} else {
		memGate := dedup.NewMemoryGate(cfg.CooldownWindow)
		gate = memGate
		sweeper = dedup.NewSweeper(memGate, logger, dedup.SweeperConfig{})
	}

	// Signal sources. Production adapters are wired here; dev mode runs
	// against the built-in simulators.
	sources := signal.SimulatedSources()

	// Scoring calibration
	weights, err := analytics.LoadCalibration(cfg.CalibrationFile)
	if err != nil {
		logger.Warn("continuing with default scoring weights", "error", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	metrics := collector.NewMetrics()
	if err := metrics.Register(registry); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register HTTP metrics", "error", err)
		os.Exit(1)
	}

	// Aggregator serves the read API and generates insights at the end of
	// each collection cycle.
	aggregator := analytics.NewAggregator(st, nil, weights, logger)

	// Scheduler
	sched := collector.NewScheduler(collector.Config{
		Interval:     cfg.CollectionInterval,
		PacingDelay:  cfg.PacingDelay,
		RetryDelay:   cfg.RetryDelay,
		MaxRetries:   cfg.MaxRetries,
		FetchTimeout: cfg.FetchTimeout,
		Logger:       logger,
		Metrics:      metrics,
		Insights:     aggregator,
	}, signal.DefaultLocations(), sources, gate, st)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sweeper != nil {
		sweeper.Start(runCtx)
	}
	if err := sched.Start(runCtx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// HTTP surface: dashboard and location read API, monetization reads,
	// health probes, metrics.
	dashboards := api.NewDashboardHandlers(aggregator, logger)
	locations := api.NewLocationHandlers(aggregator, logger)
	monetization := api.NewMonetizeHandlers(aggregator, logger)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    dbChecker,
		RedisChecker: redisChecker,
	})

	// Rate limit state shares the Redis client when one is configured so all
	// replicas see one window.
	var limitStore middleware.RateLimitStore
	if redisClient != nil {
		limitStore = middleware.NewRedisRateLimitStore(redisClient).WithMetrics(httpMetrics)
	} else {
		memLimits := middleware.NewInMemoryRateLimitStore()
		limitStore = memLimits
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-runCtx.Done():
					return
				case <-ticker.C:
					memLimits.Cleanup()
				}
			}
		}()
	}

	// The dashboard read fans out over every analytics table, so it gets a
	// tighter limit under its own key space.
	ipKey := middleware.IPKeyFunc()
	dashboardLimiter := middleware.RateLimiter(limitStore, middleware.DefaultDashboardLimit(),
		func(r *http.Request) string { return "dashboard:" + ipKey(r) })

	mux := http.NewServeMux()
	mux.Handle("/api/dashboard", dashboardLimiter(http.HandlerFunc(dashboards.Dashboard)))
	mux.HandleFunc("/api/locations/", locations.Location)
	mux.HandleFunc("/api/packages", monetization.Packages)
	mux.HandleFunc("/api/revenue", monetization.Revenue)
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/health/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Middleware chain: RequestID -> Tracing -> Logging -> CORS ->
	// RateLimiter -> HTTPMetrics -> mux.
	var handler http.Handler = mux
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.RateLimiter(limitStore, middleware.DefaultGlobalLimit(), ipKey)(handler)
	handler = middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins))(handler)
	handler = middleware.Logging(logger)(handler)
	if cfg.TracingEnabled {
		handler = middleware.Tracing("pulse-collector")(handler)
	}
	handler = middleware.RequestID(handler)
	if cfg.DevMode {
		handler = middleware.Profiling(middleware.ProfilingConfig{
			Enabled:     true,
			Environment: cfg.Env,
		})(handler)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	ossignal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	sched.Stop()
	if sweeper != nil {
		sweeper.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracer shutdown failed", "error", err)
	}

	logger.Info("collector stopped")
}
