// API server entry point for CashFlow-Sentinel. Wires the scoring,
// recommendation, scheduling, and analytics services with their optional
// infrastructure (postgres action log, redis training mutex, kafka
// events) behind the HTTP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/turtacn/CashFlow-Sentinel/internal/application/analytics"
	"github.com/turtacn/CashFlow-Sentinel/internal/application/recommendation"
	"github.com/turtacn/CashFlow-Sentinel/internal/application/scheduler"
	"github.com/turtacn/CashFlow-Sentinel/internal/application/scoring"
	"github.com/turtacn/CashFlow-Sentinel/internal/config"
	"github.com/turtacn/CashFlow-Sentinel/internal/domain/action"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/database/postgres"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/database/redis"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/CashFlow-Sentinel/internal/interfaces/http"
	"github.com/turtacn/CashFlow-Sentinel/internal/interfaces/http/handlers"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, using environment and defaults\n", err)
		cfg, err = config.LoadFromEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: configuration invalid: %v\n", err)
			os.Exit(1)
		}
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}

	log, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: logger initialization failed: %v\n", err)
		os.Exit(1)
	}
	log.Info("starting cashflow-sentinel api server", logging.Int("port", cfg.Server.Port))

	ctx := context.Background()
	metrics := prometheus.New()
	checks := map[string]handlers.Checker{}

	// Action audit store: postgres when enabled, in-memory otherwise.
	var repo action.Repository = action.NewMemoryRepository()
	if cfg.Database.Enabled {
		pool, err := postgres.Connect(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal("postgres connection failed", logging.Err(err))
		}
		defer pool.Close()

		if cfg.Database.MigrationPath != "" {
			src := cfg.Database.MigrationPath
			if !strings.HasPrefix(src, "file://") {
				src = "file://" + src
			}
			if err := postgres.RunMigrations(postgres.DSN(cfg.Database), src); err != nil {
				log.Fatal("migrations failed", logging.Err(err))
			}
		}
		repo = postgres.NewActionRepository(pool, log)
		checks["postgres"] = pool
	}

	// Redis training mutex.
	scoringOpts := []scoring.ServiceOption{scoring.WithMetrics(metrics)}
	if cfg.Redis.Enabled {
		rdb, err := redis.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal("redis connection failed", logging.Err(err))
		}
		defer rdb.Close()
		scoringOpts = append(scoringOpts, scoring.WithLocker(rdb.NewMutex("model-training")))
		checks["redis"] = rdb
	}

	// Kafka event producer; nil when disabled.
	producer, err := kafka.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Fatal("kafka producer initialization failed", logging.Err(err))
	}
	if producer != nil {
		defer producer.Close()
		scoringOpts = append(scoringOpts, scoring.WithPublisher(producer))
	}

	scorer := scoring.NewService(cfg.Model, nil, log, scoringOpts...)
	recEngine := recommendation.NewEngine(recommendation.DefaultConfig(), log, recommendation.WithMetrics(metrics))
	sched := scheduler.New(repo, cfg.Scheduler, metrics, log)
	analyticsSvc := analytics.NewService(cfg.Analytics, log, analytics.WithMetrics(metrics))

	var planPublisher handlers.PlanPublisher
	if producer != nil {
		planPublisher = producer
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		ScoreHandler:          handlers.NewScoreHandler(scorer, log),
		RecommendationHandler: handlers.NewRecommendationHandler(scorer, recEngine, repo, log),
		ScheduleHandler:       handlers.NewScheduleHandler(scorer, sched, planPublisher, log),
		AnalyticsHandler:      handlers.NewAnalyticsHandler(analyticsSvc, log),
		HealthHandler:         handlers.NewHealthHandler(checks, log),
		Metrics:               metrics,
		Logger:                log,
		Mode:                  cfg.Server.Mode,
	})
	srv := httpserver.NewServer(cfg.Server, router, log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("http server error", logging.Err(err))
		}
	case sig := <-quit:
		log.Info("shutdown signal received", logging.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("server shutdown error", logging.Err(err))
	}
	log.Info("server stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return config.Load(path)
}
