package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/autocomplete"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/store/redisstore"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/resilience"
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
	slog.Info("starting indexer service", "namespace", cfg.Autocomplete.Namespace)
	if !cfg.Kafka.Enabled {
		slog.Error("kafka is disabled; the indexer service has nothing to consume")
		os.Exit(1)
	}

	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	var observer autocomplete.Observer
	breakerCfg := resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.Resilience.BreakerThreshold,
		ResetTimeout:     cfg.Resilience.BreakerReset,
		IsFailure:        apperrors.IsRetryable,
	}
	retryCfg := resilience.RetryConfig{
		MaxAttempts:  cfg.Resilience.RetryAttempts,
		InitialDelay: cfg.Resilience.RetryDelay,
		MaxDelay:     cfg.Resilience.RetryMaxDelay,
	}
	if cfg.Metrics.Enabled {
		m := metrics.New()
		observer = m
		breakerCfg.OnStateChange = m.ObserveBreaker
		retryCfg.OnRetry = m.ObserveRetry
		shutdownMetrics, err := metrics.StartServer(cfg.Metrics.Port, nil)
		if err != nil {
			slog.Error("failed to start metrics server", "port", cfg.Metrics.Port, "error", err)
			os.Exit(1)
		}
		defer shutdownMetrics(context.Background())
	}

	engine := autocomplete.New(redisstore.New(redisClient), autocomplete.Config{
		Namespace: cfg.Autocomplete.Namespace,
		Observer:  observer,
	})

	handler := consumer.HandleMessage(engine, consumer.Options{
		Retry:        retryCfg,
		Breaker:      resilience.NewCircuitBreaker("redis", breakerCfg),
		IndexTimeout: cfg.Resilience.IndexTimeout,
	})
	kafkaConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.TermIndex, handler)
	indexConsumer := consumer.New(kafkaConsumer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.TermIndex,
		"group", cfg.Kafka.ConsumerGroup,
	)

	if err := indexConsumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	slog.Info("indexer service stopped")
}
