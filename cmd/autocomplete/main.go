package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/auth/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/autocomplete"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/rtrie/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/router"
	searchhandler "github.com/Adithya-Monish-Kumar-K/rtrie/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/store/redisstore"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting autocomplete service",
		"port", cfg.Server.Port,
		"namespace", cfg.Autocomplete.Namespace,
	)

	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	var m *metrics.Metrics
	var observer autocomplete.Observer
	if cfg.Metrics.Enabled {
		m = metrics.New()
		observer = m
		shutdownMetrics, err := metrics.StartServer(cfg.Metrics.Port, nil)
		if err != nil {
			slog.Error("failed to start metrics server", "port", cfg.Metrics.Port, "error", err)
			os.Exit(1)
		}
		defer shutdownMetrics(context.Background())
	}

	engine := autocomplete.New(redisstore.New(redisClient), autocomplete.Config{
		Namespace:    cfg.Autocomplete.Namespace,
		DefaultLimit: cfg.Autocomplete.DefaultLimit,
		Observer:     observer,
	})

	var pub *publisher.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.TermIndex)
		defer producer.Close()
		pub = publisher.New(producer)
		slog.Info("async indexing enabled", "topic", cfg.Kafka.Topics.TermIndex)
	} else {
		slog.Info("kafka disabled, async indexing unavailable")
	}

	checker := health.NewChecker()
	checker.Register("redis", health.PingCheck(engine.Ping, health.StatusDown))

	deps := router.Deps{
		Search:      searchhandler.New(engine, cfg.Autocomplete.DefaultLimit, cfg.Autocomplete.MaxLimit, cfg.Tracing.Enabled),
		Ingest:      ingesthandler.New(engine, pub),
		Health:      checker,
		Metrics:     m,
		CORSOrigins: cfg.Server.CORSOrigins,
		Timeout:     cfg.Server.WriteTimeout,
	}

	if cfg.Auth.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres for api keys", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		validator := apikey.NewValidator(db)
		deps.Validator = apikey.NewCachedValidator(validator, redisClient, cfg.Autocomplete.Namespace, cfg.Auth.CacheTTL)
		checker.Register("postgres", health.PingCheck(db.Ping, health.StatusDegraded))
		slog.Info("api key auth enabled", "cache_ttl", cfg.Auth.CacheTTL)
	}

	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.RateLimit.Window)
		defer limiter.Close()
		deps.Limiter = limiter
		deps.DefaultRateLimit = cfg.RateLimit.Requests
		slog.Info("rate limiting enabled", "requests", cfg.RateLimit.Requests, "window", cfg.RateLimit.Window)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.New(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("autocomplete service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("autocomplete service stopped")
}
