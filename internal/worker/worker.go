package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Evaluator grades stored submissions.
type Evaluator interface {
	EvaluateSubmission(ctx context.Context, kind, id string) error
}

type Server struct {
	Eval Evaluator
	Log  *zap.Logger
}

func (s *Server) mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEvaluateSubmission, s.handleEvaluate)
	return mux
}

func (s *Server) handleEvaluate(ctx context.Context, t *asynq.Task) error {
	p, err := parsePayload(t)
	if err != nil {
		s.Log.Error("dropping malformed task", zap.Error(err))
		return nil // nothing to retry
	}
	s.Log.Info("evaluating submission", zap.String("kind", p.Kind), zap.String("id", p.ID))

	// evaluation failures are written to the submission; an error here means
	// the outcome could not be stored at all
	if err := s.Eval.EvaluateSubmission(ctx, p.Kind, p.ID); err != nil {
		s.Log.Error("submission evaluation not recorded",
			zap.String("kind", p.Kind), zap.String("id", p.ID), zap.Error(err))
		return err
	}
	return nil
}

type Options struct {
	RedisAddr     string
	RedisPassword string
	Concurrency   int
}

func Run(o Options, eval Evaluator, log *zap.Logger) error {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: o.RedisAddr, Password: o.RedisPassword},
		asynq.Config{Concurrency: o.Concurrency, Logger: log.Sugar()},
	)
	w := &Server{Eval: eval, Log: log}
	return srv.Run(w.mux())
}
