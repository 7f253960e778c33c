package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"study-evaluator/internal/extract"
)

// CompletionStore keeps completion text by key.
type CompletionStore interface {
	GetCompletion(ctx context.Context, key string) (string, bool, error)
	SetCompletion(ctx context.Context, key, text string, ttl time.Duration) error
}

// Cached serves repeated requests from a CompletionStore. Only completions
// that hold an extractable record are stored, so a resubmit after a bad
// answer reaches the model again. Store errors are logged and never fail a
// completion.
type Cached struct {
	next  Completer
	store CompletionStore
	ttl   time.Duration
	model string
	log   *zap.Logger
}

func NewCached(next Completer, store CompletionStore, model string, ttl time.Duration, log *zap.Logger) *Cached {
	return &Cached{next: next, store: store, ttl: ttl, model: model, log: log}
}

// CacheKey identifies a request by model, system instruction and content.
func CacheKey(model, system, content string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(system))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cached) Complete(ctx context.Context, system, content string) (string, error) {
	key := CacheKey(c.model, system, content)
	if text, ok, err := c.store.GetCompletion(ctx, key); err != nil {
		c.log.Warn("completion cache read failed", zap.Error(err))
	} else if ok {
		c.log.Debug("completion cache hit", zap.String("key", key))
		return text, nil
	}

	text, err := c.next.Complete(ctx, system, content)
	if err != nil {
		return "", err
	}
	if !extract.Extract(text).OK() {
		c.log.Debug("completion not cached: no record", zap.String("key", key))
		return text, nil
	}
	if err := c.store.SetCompletion(ctx, key, text, c.ttl); err != nil {
		c.log.Warn("completion cache write failed", zap.Error(err))
	}
	return text, nil
}
