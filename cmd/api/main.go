package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"study-evaluator/internal/app"
	"study-evaluator/internal/config"
	"study-evaluator/internal/db"
	httpSrv "study-evaluator/internal/http"
	"study-evaluator/internal/logger"
	"study-evaluator/internal/migrations"
	"study-evaluator/internal/telemetry"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, "study-evaluator-api", cfg.OTelEndpoint)
	if err != nil {
		log.Fatal("telemetry", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// Run embedded migrations (idempotent)
	if err := migrations.Run(cfg.DatabaseURL); err != nil {
		log.Fatal("migrations", zap.Error(err))
	}

	deps, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup", zap.Error(err))
	}
	defer deps.Close()

	asq := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer asq.Close()

	srv := httpSrv.NewServer(httpSrv.Options{
		Addr:           cfg.HTTPAddr,
		Evaluator:      deps.Service,
		Results:        &db.ResultStore{DB: deps.DB},
		Submissions:    &db.SubmissionStore{DB: deps.DB},
		Cache:          deps.Redis,
		Queue:          asq,
		Uploads:        deps.Storage,
		Ping:           deps.DB.PingContext,
		APIToken:       cfg.APIToken,
		MaxUploadBytes: cfg.MaxUploadMegabytes << 20,
		Log:            log.Named("http"),
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("api listening", zap.String("addr", srv.Addr), zap.String("llm_provider", cfg.LLMProvider))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("serve", zap.Error(err))
	}
}
