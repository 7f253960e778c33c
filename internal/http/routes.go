package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	m "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"study-evaluator/internal/db"
	"study-evaluator/internal/evaluation"
	"study-evaluator/internal/pairing"
	"study-evaluator/internal/schemas"
)

type Evaluator interface {
	ProcessBatch(ctx context.Context, plans, reports []pairing.Doc) schemas.UploadResponse
	Reevaluate(ctx context.Context, id int64) (schemas.ReevaluateResponse, error)
	AnalyzeLocal(ctx context.Context) (schemas.LocalAnalysisResponse, error)
}

type Results interface {
	List(ctx context.Context, f schemas.ResultFilter) ([]schemas.ResultRow, error)
	Get(ctx context.Context, id int64) (db.AnalysisResult, error)
	FilterOptions(ctx context.Context) (schemas.FilterOptions, error)
}

type Submissions interface {
	Create(ctx context.Context, sub db.Submission) (db.Submission, error)
	List(ctx context.Context, kind string) ([]db.Submission, error)
	Get(ctx context.Context, kind, id string) (db.Submission, error)
	Fail(ctx context.Context, kind, id, reason string, raw []byte) error
}

type OptionsCache interface {
	GetFilterOptions(ctx context.Context) (schemas.FilterOptions, bool, error)
	SetFilterOptions(ctx context.Context, opts schemas.FilterOptions) error
}

type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Uploads keeps a copy of every uploaded document.
type Uploads interface {
	PutFile(ctx context.Context, prefix, name string, data []byte) (string, error)
}

type Options struct {
	Addr           string
	Evaluator      Evaluator
	Results        Results
	Submissions    Submissions
	Cache          OptionsCache
	Queue          Enqueuer
	Uploads        Uploads
	Ping           func(ctx context.Context) error
	APIToken       string
	MaxUploadBytes int64
	Log            *zap.Logger
}

type Server struct {
	eval        Evaluator
	results     Results
	submissions Submissions
	cache       OptionsCache
	queue       Enqueuer
	uploads     Uploads
	ping        func(ctx context.Context) error
	maxUpload   int64
	log         *zap.Logger
}

func NewServer(o Options) *http.Server {
	if o.Addr == "" {
		o.Addr = ":8000"
	}
	return &http.Server{
		Addr:              o.Addr,
		Handler:           Routes(o),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func Routes(o Options) http.Handler {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 32 << 20
	}
	s := &Server{
		eval:        o.Evaluator,
		results:     o.Results,
		submissions: o.Submissions,
		cache:       o.Cache,
		queue:       o.Queue,
		uploads:     o.Uploads,
		ping:        o.Ping,
		maxUpload:   o.MaxUploadBytes,
		log:         o.Log,
	}

	r := chi.NewRouter()
	r.Use(m.RequestID, m.RealIP, accessLog(o.Log), m.Recoverer)

	r.Post("/upload-and-analyze", s.uploadAndAnalyze)
	r.Get("/results", s.listResults)
	r.Get("/results/{id}", s.getResult)
	r.Get("/filter-options", s.filterOptions)

	r.Post("/study-plans", s.createPlan)
	r.Get("/study-plans", s.listSubmissions(db.KindPlan))
	r.Get("/study-plans/{id}", s.getSubmission(db.KindPlan))
	r.Post("/study-reports", s.createReport)
	r.Get("/study-reports", s.listSubmissions(db.KindReport))
	r.Get("/study-reports/{id}", s.getSubmission(db.KindReport))

	// Admin/API-token protected
	r.Group(func(r chi.Router) {
		r.Use(RequireAPIToken(o.APIToken))
		r.Post("/results/{id}/reevaluate", s.reevaluate)
		r.Post("/run-local-analysis", s.runLocalAnalysis)
	})

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "db error"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) uploadAndAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUpload {
		writeJSON(w, http.StatusRequestEntityTooLarge, errResp{"upload too large"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errResp{"upload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errResp{fmt.Sprintf("파일 읽기 오류: %v", err)})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	plans, err := s.formDocs(r, "plan_files", "plan_file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{err.Error()})
		return
	}
	reports, err := s.formDocs(r, "report_files", "report_file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{err.Error()})
		return
	}
	if len(plans) == 0 && len(reports) == 0 {
		writeJSON(w, http.StatusBadRequest, errResp{"no plan_files or report_files uploaded"})
		return
	}
	s.keepUploads(r.Context(), append(append([]pairing.Doc{}, plans...), reports...))

	writeJSON(w, http.StatusOK, s.eval.ProcessBatch(r.Context(), plans, reports))
}

func (s *Server) formDocs(r *http.Request, fields ...string) ([]pairing.Doc, error) {
	var docs []pairing.Doc
	for _, field := range fields {
		for _, fh := range r.MultipartForm.File[field] {
			data, err := readPart(fh)
			if err != nil {
				return nil, fmt.Errorf("파일 읽기 오류: %s: %w", fh.Filename, err)
			}
			docs = append(docs, pairing.Doc{Name: fh.Filename, Data: data})
		}
	}
	return docs, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) keepUploads(ctx context.Context, docs []pairing.Doc) {
	if s.uploads == nil {
		return
	}
	for _, d := range docs {
		if _, err := s.uploads.PutFile(ctx, "uploads", d.Name, d.Data); err != nil {
			s.log.Warn("upload archive failed", zap.String("filename", d.Name), zap.Error(err))
		}
	}
}

func (s *Server) listResults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := schemas.ResultFilter{
		Campus:    q.Get("campus"),
		ClassName: q.Get("class_name"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Q:         strings.TrimSpace(q.Get("q")),
	}
	for _, d := range []string{f.StartDate, f.EndDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			writeJSON(w, http.StatusBadRequest, errResp{fmt.Sprintf("bad date %q, want YYYY-MM-DD", d)})
			return
		}
	}
	rows, err := s.results.List(r.Context(), f)
	if err != nil {
		s.log.Error("list results", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errResp{err.Error()})
		return
	}
	if rows == nil {
		rows = []schemas.ResultRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) getResult(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errResp{"not found"})
		return
	}
	row, err := s.results.Get(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errResp{"not found"})
		return
	}
	if err != nil {
		s.log.Error("get result", zap.Int64("id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errResp{err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, schemas.ResultDetail{Filename: row.Filename, AnalysisData: row.AnalysisJSON})
}

func (s *Server) filterOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.cache != nil {
		opts, ok, err := s.cache.GetFilterOptions(ctx)
		if err != nil {
			s.log.Warn("filter options cache read failed", zap.Error(err))
		}
		if ok {
			writeJSON(w, http.StatusOK, opts)
			return
		}
	}
	opts, err := s.results.FilterOptions(ctx)
	if err != nil {
		s.log.Error("filter options", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errResp{err.Error()})
		return
	}
	if s.cache != nil {
		if err := s.cache.SetFilterOptions(ctx, opts); err != nil {
			s.log.Warn("filter options cache write failed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, opts)
}

func (s *Server) reevaluate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errResp{"not found"})
		return
	}
	resp, err := s.eval.Reevaluate(r.Context(), id)
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errResp{"not found"})
	case errors.Is(err, evaluation.ErrNoArchive):
		writeJSON(w, http.StatusConflict, errResp{err.Error()})
	case err != nil:
		s.log.Error("reevaluate", zap.Int64("id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errResp{err.Error()})
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) runLocalAnalysis(w http.ResponseWriter, r *http.Request) {
	resp, err := s.eval.AnalyzeLocal(r.Context())
	if err != nil {
		s.log.Error("local analysis", zap.String("file", resp.FileProcessed), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errResp{err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
