package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"study-evaluator/internal/cache"
	"study-evaluator/internal/db"
	"study-evaluator/internal/evaluation"
	"study-evaluator/internal/pairing"
	"study-evaluator/internal/schemas"
	"study-evaluator/internal/worker"
)

const testToken = "dev-secret-token"

type fakeEvaluator struct {
	plans, reports []pairing.Doc
	reevalErr      error
	localErr       error
}

func (f *fakeEvaluator) ProcessBatch(_ context.Context, plans, reports []pairing.Doc) schemas.UploadResponse {
	f.plans, f.reports = plans, reports
	return schemas.UploadResponse{
		Summary: schemas.UploadSummary{MatchedCount: 1, UnmatchedPlans: []string{}, UnmatchedReports: []string{}},
		Results: []schemas.UploadItem{{Filename: reports[0].Name, Status: schemas.StatusSuccess, AnalysisResult: `{"total":70}`}},
	}
}

func (f *fakeEvaluator) Reevaluate(_ context.Context, id int64) (schemas.ReevaluateResponse, error) {
	if f.reevalErr != nil {
		return schemas.ReevaluateResponse{}, f.reevalErr
	}
	return schemas.ReevaluateResponse{ID: id, Status: schemas.StatusSuccess}, nil
}

func (f *fakeEvaluator) AnalyzeLocal(context.Context) (schemas.LocalAnalysisResponse, error) {
	resp := schemas.LocalAnalysisResponse{FileProcessed: "/srv/reports/9월_스터디_결과.txt"}
	if f.localErr != nil {
		return resp, f.localErr
	}
	resp.AnalysisResult = `{"total":70}`
	return resp, nil
}

type fakeResults struct {
	filter      schemas.ResultFilter
	rows        []schemas.ResultRow
	optionCalls int
}

func (f *fakeResults) List(_ context.Context, filter schemas.ResultFilter) ([]schemas.ResultRow, error) {
	f.filter = filter
	return f.rows, nil
}

func (f *fakeResults) Get(_ context.Context, id int64) (db.AnalysisResult, error) {
	if id != 7 {
		return db.AnalysisResult{}, db.ErrNotFound
	}
	return db.AnalysisResult{ID: 7, Filename: "결과보고서_광주_1반_홍길동", AnalysisJSON: []byte(`{"total":70}`)}, nil
}

func (f *fakeResults) FilterOptions(context.Context) (schemas.FilterOptions, error) {
	f.optionCalls++
	return schemas.FilterOptions{Campuses: []string{"광주", "서울"}, ClassNames: []string{"1반"}}, nil
}

type fakeSubmissions struct {
	created []db.Submission
}

func (f *fakeSubmissions) Create(_ context.Context, sub db.Submission) (db.Submission, error) {
	sub.Date = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	f.created = append(f.created, sub)
	return sub, nil
}

func (f *fakeSubmissions) List(_ context.Context, kind string) ([]db.Submission, error) {
	var out []db.Submission
	for _, s := range f.created {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubmissions) Get(_ context.Context, kind, id string) (db.Submission, error) {
	for _, s := range f.created {
		if s.Kind == kind && s.ID == id {
			return s, nil
		}
	}
	return db.Submission{}, db.ErrNotFound
}

func (f *fakeSubmissions) Fail(_ context.Context, kind, id, reason string, _ []byte) error {
	for i, s := range f.created {
		if s.Kind == kind && s.ID == id {
			f.created[i].Status = db.StatusFailed
			f.created[i].Error = &reason
			return nil
		}
	}
	return db.ErrNotFound
}

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{}, nil
}

type fixture struct {
	handler     http.Handler
	eval        *fakeEvaluator
	results     *fakeResults
	submissions *fakeSubmissions
	queue       *fakeQueue
	redis       *miniredis.Miniredis
}

func newFixture(t *testing.T, maxUpload int64) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	f := &fixture{
		eval:        &fakeEvaluator{},
		results:     &fakeResults{},
		submissions: &fakeSubmissions{},
		queue:       &fakeQueue{},
		redis:       mr,
	}
	rc := cache.NewRedis(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = rc.Close() })
	f.handler = Routes(Options{
		Evaluator:      f.eval,
		Results:        f.results,
		Submissions:    f.submissions,
		Cache:          rc,
		Queue:          f.queue,
		Ping:           func(context.Context) error { return nil },
		APIToken:       testToken,
		MaxUploadBytes: maxUpload,
		Log:            zaptest.NewLogger(t),
	})
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, files map[string][]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, names := range files {
		for _, name := range names {
			part, err := mw.CreateFormFile(field, name)
			require.NoError(t, err)
			_, err = part.Write([]byte("content of " + name))
			require.NoError(t, err)
		}
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadAndAnalyze(t *testing.T) {
	f := newFixture(t, 0)
	body, ct := multipartBody(t, map[string][]string{
		"plan_files":  {"계획서_광주_1반_홍길동.txt"},
		"report_file": {"결과보고서_광주_1반_홍길동.txt"},
	})
	req := httptest.NewRequest(http.MethodPost, "/upload-and-analyze", body)
	req.Header.Set("Content-Type", ct)

	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, f.eval.plans, 1)
	require.Len(t, f.eval.reports, 1)
	assert.Equal(t, "계획서_광주_1반_홍길동.txt", f.eval.plans[0].Name)
	assert.Equal(t, []byte("content of 결과보고서_광주_1반_홍길동.txt"), f.eval.reports[0].Data)

	var resp schemas.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Summary.MatchedCount)
	assert.Equal(t, schemas.StatusSuccess, resp.Results[0].Status)
}

func TestUploadWithoutFiles(t *testing.T) {
	f := newFixture(t, 0)
	body, ct := multipartBody(t, map[string][]string{})
	req := httptest.NewRequest(http.MethodPost, "/upload-and-analyze", body)
	req.Header.Set("Content-Type", ct)

	rec := f.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no plan_files")
}

func TestUploadTooLarge(t *testing.T) {
	f := newFixture(t, 64)
	body, ct := multipartBody(t, map[string][]string{
		"plan_files": {strings.Repeat("큰파일", 40) + ".txt"},
	})
	req := httptest.NewRequest(http.MethodPost, "/upload-and-analyze", body)
	req.Header.Set("Content-Type", ct)

	rec := f.do(req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestListResultsPassesFilters(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(httptest.NewRequest(http.MethodGet,
		"/results?campus=%EA%B4%91%EC%A3%BC&class_name=1%EB%B0%98&start_date=2026-10-01&q=+%ED%99%8D+", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, schemas.ResultFilter{
		Campus:    "광주",
		ClassName: "1반",
		StartDate: "2026-10-01",
		Q:         "홍",
	}, f.results.filter)
}

func TestListResultsRejectsBadDate(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/results?end_date=10/19/2026", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetResult(t *testing.T) {
	f := newFixture(t, 0)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/results/7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"filename":"결과보고서_광주_1반_홍길동","analysis_data":{"total":70}}`, rec.Body.String())

	for _, path := range []string{"/results/8", "/results/abc"} {
		rec := f.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestFilterOptionsAreCached(t *testing.T) {
	f := newFixture(t, 0)
	for range 2 {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/filter-options", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"campuses":["광주","서울"],"class_names":["1반"]}`, rec.Body.String())
	}
	assert.Equal(t, 1, f.results.optionCalls)
	assert.True(t, f.redis.Exists("filter-options"))
}

func TestReevaluateRequiresToken(t *testing.T) {
	f := newFixture(t, 0)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/results/7/reevaluate", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/results/7/reevaluate", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, f.do(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/results/7/reevaluate", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec = f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"status":"success"}`, rec.Body.String())
}

func TestReevaluateErrors(t *testing.T) {
	f := newFixture(t, 0)
	cases := map[error]int{
		db.ErrNotFound:          http.StatusNotFound,
		evaluation.ErrNoArchive: http.StatusConflict,
		errors.New("s3 down"):   http.StatusInternalServerError,
	}
	for err, code := range cases {
		f.eval.reevalErr = err
		req := httptest.NewRequest(http.MethodPost, "/results/7/reevaluate", nil)
		req.Header.Set("Authorization", "Bearer "+testToken)
		assert.Equal(t, code, f.do(req).Code, err.Error())
	}
}

func TestRunLocalAnalysis(t *testing.T) {
	f := newFixture(t, 0)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/run-local-analysis", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/run-local-analysis", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec = f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"file_processed":"/srv/reports/9월_스터디_결과.txt","analysis_result":"{\"total\":70}"}`, rec.Body.String())

	f.eval.localErr = errors.New("LLM request failed: 503")
	req = httptest.NewRequest(http.MethodPost, "/run-local-analysis", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec = f.do(req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "LLM request failed")
}

func TestCreatePlanEnqueuesEvaluation(t *testing.T) {
	f := newFixture(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/study-plans", strings.NewReader(
		`{"title":"알고리즘 마스터","author":"홍길동","campus":"광주","member_count":4,"plan":"1주차: 그래프"}`))
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out schemas.SubmissionOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, db.KindPlan, out.Kind)
	assert.Equal(t, db.StatusPending, out.Status)
	assert.Equal(t, "1주차: 그래프", out.Plan)
	assert.NotEmpty(t, out.ID)

	require.Len(t, f.queue.tasks, 1)
	assert.Equal(t, worker.TypeEvaluateSubmission, f.queue.tasks[0].Type())
	assert.JSONEq(t, `{"kind":"plan","id":"`+out.ID+`"}`, string(f.queue.tasks[0].Payload()))

	rec = f.do(httptest.NewRequest(http.MethodGet, "/study-plans/"+out.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/study-plans", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []schemas.SubmissionOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestCreatePlanEnqueueFailureMarksSubmissionFailed(t *testing.T) {
	f := newFixture(t, 0)
	f.queue.err = errors.New("dial tcp: connection refused")

	rec := f.do(httptest.NewRequest(http.MethodPost, "/study-plans", strings.NewReader(
		`{"title":"알고리즘 마스터","plan":"1주차: 그래프"}`)))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "connection refused")

	require.Len(t, f.submissions.created, 1)
	id := f.submissions.created[0].ID
	rec = f.do(httptest.NewRequest(http.MethodGet, "/study-plans/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out schemas.SubmissionOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, db.StatusFailed, out.Status)
	assert.Contains(t, out.Error, "enqueue evaluation")
}

func TestCreateReportValidation(t *testing.T) {
	f := newFixture(t, 0)
	for _, body := range []string{`{`, `{"title":"x"}`, `{"title":"x","content":"y","member_count":-1}`} {
		rec := f.do(httptest.NewRequest(http.MethodPost, "/study-reports", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, f.queue.tasks)
}

func TestGetSubmissionNotFound(t *testing.T) {
	f := newFixture(t, 0)
	for _, path := range []string{"/study-reports/not-a-uuid", "/study-reports/4b8f0f3e-7c1a-4d1e-9a55-2f0a4b1c9d77"} {
		rec := f.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
