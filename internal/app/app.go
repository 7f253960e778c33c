// Package app wires the shared dependencies of the api and worker binaries.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"study-evaluator/internal/cache"
	"study-evaluator/internal/config"
	"study-evaluator/internal/db"
	"study-evaluator/internal/evaluation"
	"study-evaluator/internal/llm"
	"study-evaluator/internal/storage"
)

type Deps struct {
	DB      *sqlx.DB
	Redis   *cache.Redis
	Storage *storage.Client
	Service *evaluation.Service
}

func (d *Deps) Close() {
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}

// Build opens the database, Redis and object storage and assembles the
// evaluation service on top of them.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Deps, error) {
	dbx, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	d := &Deps{DB: dbx}

	d.Redis = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, 0)
	if err := d.Redis.Ping(ctx); err != nil {
		d.Close()
		return nil, err
	}

	d.Storage, err = storage.New(ctx, storage.Options{
		Endpoint:  cfg.MinioEndpoint,
		Bucket:    cfg.MinioBucket,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("object storage: %w", err)
	}

	completer, err := llm.New(ctx, llm.Config{
		Provider:  cfg.LLMProvider,
		Model:     cfg.LLMModel,
		BaseURL:   cfg.LLMBaseURL,
		APIKey:    cfg.LLMAPIKey,
		MaxTokens: cfg.LLMMaxTokens,
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	if cfg.CacheTTL > 0 {
		completer = llm.NewCached(completer, d.Redis, cfg.LLMModel, cfg.CacheTTL, log.Named("llm-cache"))
	}

	d.Service = evaluation.New(evaluation.Options{
		Completer:     completer,
		Results:       &db.ResultStore{DB: dbx},
		Submissions:   &db.SubmissionStore{DB: dbx},
		Archive:       d.Storage,
		Invalidator:   d.Redis,
		Local: evaluation.LocalSource{
			Dir:            cfg.ReportDir(),
			Keywords:       cfg.LocalKeywords,
			DefaultContent: cfg.LocalDefaultContent,
		},
		Log:           log.Named("evaluation"),
		Provider:      cfg.LLMProvider,
		Model:         cfg.LLMModel,
		Concurrency:   cfg.EvalConcurrency,
		EvalUnmatched: cfg.EvalUnmatched,
	})
	return d, nil
}
