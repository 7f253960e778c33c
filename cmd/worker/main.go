package main

import (
	"context"

	"go.uber.org/zap"

	"study-evaluator/internal/app"
	"study-evaluator/internal/config"
	"study-evaluator/internal/logger"
	"study-evaluator/internal/telemetry"
	"study-evaluator/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("error", "console").Fatal("load config", zap.Error(err))
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	if err := cfg.RequireServer(); err != nil {
		log.Fatal("config", zap.Error(err))
	}

	ctx := context.Background()
	shutdownTracing, err := telemetry.Init(ctx, "study-evaluator-worker", cfg.OTelEndpoint)
	if err != nil {
		log.Fatal("telemetry", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	deps, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup", zap.Error(err))
	}
	defer deps.Close()

	log.Info("worker starting", zap.Int("concurrency", cfg.WorkerConcurrency))
	// asynq.Server.Run handles SIGTERM/SIGINT itself
	if err := worker.Run(worker.Options{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		Concurrency:   cfg.WorkerConcurrency,
	}, deps.Service, log.Named("worker")); err != nil {
		log.Error("worker stopped", zap.Error(err))
	}
}
