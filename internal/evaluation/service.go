// Package evaluation runs documents through the completion endpoint and
// stores the records it extracts.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"study-evaluator/internal/db"
	"study-evaluator/internal/documents"
	"study-evaluator/internal/extract"
	"study-evaluator/internal/llm"
	"study-evaluator/internal/metrics"
	"study-evaluator/internal/pairing"
	"study-evaluator/internal/prompt"
	"study-evaluator/internal/schemas"
)

const completionPrefix = "completions"

var ErrNoArchive = errors.New("result has no archived completion")

type ResultStore interface {
	Insert(ctx context.Context, r db.AnalysisResult) (int64, error)
	Get(ctx context.Context, id int64) (db.AnalysisResult, error)
	UpdateAnalysis(ctx context.Context, id int64, total float64, photos int, analysis []byte) error
}

type SubmissionStore interface {
	Get(ctx context.Context, kind, id string) (db.Submission, error)
	Grade(ctx context.Context, kind, id string, total *float64, evaluation []byte) error
	Fail(ctx context.Context, kind, id, reason string, raw []byte) error
}

// Archive keeps raw completions so results can be re-extracted later.
type Archive interface {
	PutJSON(ctx context.Context, prefix string, v any) (string, error)
	GetJSON(ctx context.Context, ref string, v any) error
}

// Invalidator is told when new results change the filter options.
type Invalidator interface {
	InvalidateFilterOptions(ctx context.Context) error
}

// ArchivedCompletion is the archive payload for one completion call.
type ArchivedCompletion struct {
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Filename   string    `json:"filename"`
	Content    string    `json:"content"`
	Completion string    `json:"completion"`
	CreatedAt  time.Time `json:"created_at"`
}

type Options struct {
	Completer   llm.Completer
	Results     ResultStore
	Submissions SubmissionStore
	Archive     Archive
	Invalidator Invalidator
	Local       LocalSource
	Log         *zap.Logger

	Provider      string
	Model         string
	Concurrency   int
	EvalUnmatched bool
}

type Service struct {
	completer   llm.Completer
	results     ResultStore
	submissions SubmissionStore
	archive     Archive
	invalidator Invalidator
	local       LocalSource
	log         *zap.Logger

	provider      string
	model         string
	concurrency   int
	evalUnmatched bool
}

func New(o Options) *Service {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	return &Service{
		completer:     o.Completer,
		results:       o.Results,
		submissions:   o.Submissions,
		archive:       o.Archive,
		invalidator:   o.Invalidator,
		local:         o.Local,
		log:           o.Log,
		provider:      o.Provider,
		model:         o.Model,
		concurrency:   o.Concurrency,
		evalUnmatched: o.EvalUnmatched,
	}
}

type job struct {
	key    string
	plan   *pairing.Doc
	report *pairing.Doc
}

func (j job) target() pairing.Doc {
	if j.report != nil {
		return *j.report
	}
	return *j.plan
}

// ProcessBatch pairs the uploaded documents and evaluates every pair. Results
// follow pair order; one failing pair never affects another.
func (s *Service) ProcessBatch(ctx context.Context, plans, reports []pairing.Doc) schemas.UploadResponse {
	metrics.UploadsActive.Inc()
	defer metrics.UploadsActive.Dec()

	m := pairing.Match(plans, reports)
	resp := schemas.UploadResponse{
		Summary: schemas.UploadSummary{
			MatchedCount:     len(m.Pairs),
			UnmatchedPlans:   pairing.Names(m.UnmatchedPlans),
			UnmatchedReports: pairing.Names(m.UnmatchedReports),
		},
	}

	var jobs []job
	for _, p := range m.Pairs {
		jobs = append(jobs, job{key: p.Key, plan: &p.Plan, report: &p.Report})
	}
	if s.evalUnmatched {
		for _, d := range m.UnmatchedPlans {
			jobs = append(jobs, job{key: d.Name, plan: &d})
		}
		for _, d := range m.UnmatchedReports {
			jobs = append(jobs, job{key: d.Name, report: &d})
		}
	}
	s.log.Info("evaluating upload batch",
		zap.Int("pairs", len(m.Pairs)),
		zap.Int("unmatched_plans", len(m.UnmatchedPlans)),
		zap.Int("unmatched_reports", len(m.UnmatchedReports)),
		zap.Int("jobs", len(jobs)))

	resp.Results = make([]schemas.UploadItem, len(jobs))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			resp.Results[i] = s.processJob(ctx, j)
			return nil
		})
	}
	_ = g.Wait()

	stored := false
	for _, it := range resp.Results {
		if it.ResultID != 0 {
			stored = true
		}
	}
	if stored && s.invalidator != nil {
		if err := s.invalidator.InvalidateFilterOptions(ctx); err != nil {
			s.log.Warn("filter options invalidation failed", zap.Error(err))
		}
	}
	return resp
}

func (s *Service) processJob(ctx context.Context, j job) schemas.UploadItem {
	target := j.target()
	item := schemas.UploadItem{Key: j.key, Filename: target.Name, Status: schemas.StatusError}
	log := s.log.With(zap.String("key", j.key), zap.String("filename", target.Name))

	var planText, reportText string
	if j.plan != nil {
		text, err := documents.Read(j.plan.Name, j.plan.Data)
		if err != nil {
			return s.failed(log, item, fmt.Errorf("read plan: %w", err))
		}
		planText = text
	}
	if j.report != nil {
		text, err := documents.Read(j.report.Name, j.report.Data)
		if err != nil {
			return s.failed(log, item, fmt.Errorf("read report: %w", err))
		}
		reportText = text
	}
	content, err := prompt.PairContent(planText, reportText)
	if err != nil {
		return s.failed(log, item, err)
	}

	text, err := s.complete(ctx, prompt.System(), content)
	if err != nil {
		return s.failed(log, item, err)
	}
	ref := s.archiveCompletion(ctx, log, target.Name, content, text)

	rec, err := s.record(log, text)
	if err != nil {
		item.AnalysisResult = text
		return s.failed(log, item, err)
	}

	info := pairing.ParseInfo(target.Name)
	id, err := s.results.Insert(ctx, db.AnalysisResult{
		Filename:      pairing.Stem(target.Name),
		TotalScore:    rec.Total,
		PhotoCount:    rec.PhotoCountDetected,
		AnalysisJSON:  rec.Raw,
		Campus:        info.Campus,
		ClassName:     info.ClassName,
		AuthorName:    info.Author,
		CompletionRef: ref,
	})
	if err != nil {
		item.AnalysisResult = string(rec.Raw)
		return s.failed(log, item, fmt.Errorf("save result: %w", err))
	}

	metrics.EvaluationsTotal.WithLabelValues("upload", schemas.StatusSuccess).Inc()
	log.Info("pair evaluated", zap.Int64("result_id", id), zap.Float64("total", *rec.Total))
	item.Status = schemas.StatusSuccess
	item.AnalysisResult = string(rec.Raw)
	item.ResultID = id
	return item
}

func (s *Service) failed(log *zap.Logger, item schemas.UploadItem, err error) schemas.UploadItem {
	metrics.EvaluationsTotal.WithLabelValues("upload", schemas.StatusError).Inc()
	log.Warn("pair evaluation failed", zap.Error(err))
	item.Status = schemas.StatusError
	item.Error = err.Error()
	return item
}

func (s *Service) complete(ctx context.Context, system, content string) (string, error) {
	start := time.Now()
	text, err := s.completer.Complete(ctx, system, content)
	metrics.CompletionDuration.WithLabelValues(s.provider).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("LLM request failed: %w", err)
	}
	return text, nil
}

// record extracts, normalizes and checks the evaluation in text.
func (s *Service) record(log *zap.Logger, text string) (extract.Record, error) {
	outcome := extract.Extract(text)
	if f, failed := outcome.Failure(); failed {
		metrics.ExtractionFailures.WithLabelValues(string(f.Reason)).Inc()
		return extract.Record{}, f
	}
	rec, _ := outcome.Record()

	rec, mismatch, err := normalize(rec)
	if err != nil {
		return extract.Record{}, fmt.Errorf("normalize scores: %w", err)
	}
	if mismatch {
		metrics.ScoreMismatches.Inc()
		log.Info("reported scores disagree with rubric; recomputed")
	}
	if err := checkPersistable(rec); err != nil {
		return extract.Record{}, err
	}
	return rec, nil
}

func (s *Service) archiveCompletion(ctx context.Context, log *zap.Logger, filename, content, text string) *string {
	if s.archive == nil {
		return nil
	}
	ref, err := s.archive.PutJSON(ctx, completionPrefix, ArchivedCompletion{
		Provider:   s.provider,
		Model:      s.model,
		Filename:   filename,
		Content:    content,
		Completion: text,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		log.Warn("completion archive failed", zap.Error(err))
		return nil
	}
	return &ref
}

// Reevaluate re-extracts a stored result from its archived completion, for
// results stored before extraction or scoring rules changed.
func (s *Service) Reevaluate(ctx context.Context, id int64) (schemas.ReevaluateResponse, error) {
	resp := schemas.ReevaluateResponse{ID: id, Status: schemas.StatusError}
	row, err := s.results.Get(ctx, id)
	if err != nil {
		return resp, err
	}
	if row.CompletionRef == nil || s.archive == nil {
		return resp, ErrNoArchive
	}
	var archived ArchivedCompletion
	if err := s.archive.GetJSON(ctx, *row.CompletionRef, &archived); err != nil {
		return resp, fmt.Errorf("load archived completion: %w", err)
	}

	log := s.log.With(zap.Int64("result_id", id))
	rec, err := s.record(log, archived.Completion)
	if err != nil {
		resp.Error = err.Error()
		return resp, nil
	}
	if err := s.results.UpdateAnalysis(ctx, id, *rec.Total, *rec.PhotoCountDetected, rec.Raw); err != nil {
		return resp, err
	}
	resp.Status = schemas.StatusSuccess
	return resp, nil
}
