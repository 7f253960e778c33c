package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"study-evaluator/internal/db"
	"study-evaluator/internal/metrics"
	"study-evaluator/internal/prompt"
)

// SubmissionPrompt assembles the evaluation prompt for a typed-form
// submission.
func SubmissionPrompt(sub db.Submission) (string, error) {
	switch sub.Kind {
	case db.KindPlan:
		return prompt.PlanPrompt(prompt.PlanInput{
			Goal:        sub.Title,
			PlanText:    sub.Body,
			MemberCount: sub.MemberCount,
		}), nil
	case db.KindReport:
		return prompt.ReportPrompt(prompt.ReportInput{
			Goal:        sub.Title,
			Content:     sub.Body,
			Reflection:  sub.Reflection,
			MemberCount: sub.MemberCount,
		}), nil
	}
	return "", fmt.Errorf("%w: %q", db.ErrUnknownKind, sub.Kind)
}

// EvaluateSubmission scores a stored submission and records the outcome on
// it. The returned error is only for store failures; evaluation failures are
// recorded on the submission.
func (s *Service) EvaluateSubmission(ctx context.Context, kind, id string) error {
	if s.submissions == nil {
		return errors.New("evaluation: no submission store configured")
	}
	log := s.log.With(zap.String("kind", kind), zap.String("submission_id", id))

	sub, err := s.submissions.Get(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("load submission: %w", err)
	}
	text, err := SubmissionPrompt(sub)
	if err != nil {
		return s.failSubmission(ctx, log, sub, err, "")
	}

	completion, err := s.complete(ctx, "", text)
	if err != nil {
		return s.failSubmission(ctx, log, sub, err, "")
	}
	s.archiveCompletion(ctx, log, kind+"/"+id, text, completion)

	rec, err := s.record(log, completion)
	if err != nil {
		return s.failSubmission(ctx, log, sub, err, completion)
	}
	if err := s.submissions.Grade(ctx, kind, id, rec.Total, rec.Raw); err != nil {
		return err
	}
	metrics.EvaluationsTotal.WithLabelValues("submission", "success").Inc()
	log.Info("submission graded", zap.Float64("total", *rec.Total))
	return nil
}

func (s *Service) failSubmission(ctx context.Context, log *zap.Logger, sub db.Submission, cause error, completion string) error {
	metrics.EvaluationsTotal.WithLabelValues("submission", "error").Inc()
	log.Warn("submission evaluation failed", zap.Error(cause))

	var raw []byte
	if completion != "" {
		raw, _ = json.Marshal(map[string]string{"original": completion})
	}
	return s.submissions.Fail(ctx, sub.Kind, sub.ID, cause.Error(), raw)
}
