package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap/zaptest"

	"study-evaluator/internal/db"
	"study-evaluator/internal/extract"
	"study-evaluator/internal/pairing"
	"study-evaluator/internal/schemas"
)

const goodCompletion = "평가 결과입니다.\n```json\n" + `{
  "scores_raw": {"plan_specificity": 4, "plan_feasibility": 4, "plan_measurability": 3,
    "result_specificity_goal": 4, "team_participation_diversity": 3, "evidence_strength": 3},
  "scores_weighted": {"plan_specificity": 8, "plan_feasibility": 8, "plan_measurability": 6,
    "result_specificity_goal": 24, "team_participation_diversity": 12, "evidence_strength": 12},
  "total": 70,
  "photo_count_detected": 3,
  "rationale": {"plan_specificity": "주차별 계획이 명확함"},
  "uncertainties": [],
  "final_comment": "좋은 결과입니다."
}` + "\n```"

type completerFunc func(ctx context.Context, system, content string) (string, error)

func (f completerFunc) Complete(ctx context.Context, system, content string) (string, error) {
	return f(ctx, system, content)
}

type fakeResults struct {
	mu      sync.Mutex
	rows    map[int64]db.AnalysisResult
	next    int64
	failFor string
}

func newFakeResults() *fakeResults { return &fakeResults{rows: map[int64]db.AnalysisResult{}} }

func (f *fakeResults) Insert(_ context.Context, r db.AnalysisResult) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor != "" && r.Filename == f.failFor {
		return 0, errors.New("connection reset")
	}
	f.next++
	r.ID = f.next
	f.rows[r.ID] = r
	return r.ID, nil
}

func (f *fakeResults) Get(_ context.Context, id int64) (db.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return db.AnalysisResult{}, db.ErrNotFound
	}
	return r, nil
}

func (f *fakeResults) UpdateAnalysis(_ context.Context, id int64, total float64, photos int, analysis []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return db.ErrNotFound
	}
	r.TotalScore = &total
	r.PhotoCount = &photos
	r.AnalysisJSON = analysis
	f.rows[id] = r
	return nil
}

type fakeArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (a *fakeArchive) PutJSON(_ context.Context, prefix string, v any) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	ref := fmt.Sprintf("s3://test/%s/%d.json", prefix, len(a.objects))
	a.objects[ref] = b
	return ref, nil
}

func (a *fakeArchive) GetJSON(_ context.Context, ref string, v any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.objects[ref]
	if !ok {
		return errors.New("no such key")
	}
	return json.Unmarshal(b, v)
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateFilterOptions(context.Context) error {
	c.calls++
	return nil
}

func doc(name, text string) pairing.Doc { return pairing.Doc{Name: name, Data: []byte(text)} }

func TestProcessBatchStoresMatchedPairs(t *testing.T) {
	results := newFakeResults()
	archive := &fakeArchive{objects: map[string][]byte{}}
	inv := &countingInvalidator{}
	var seen []string
	var mu sync.Mutex

	svc := New(Options{
		Completer: completerFunc(func(_ context.Context, system, content string) (string, error) {
			mu.Lock()
			seen = append(seen, content)
			mu.Unlock()
			assert.NotEmpty(t, system)
			return goodCompletion, nil
		}),
		Results:     results,
		Archive:     archive,
		Invalidator: inv,
		Log:         zaptest.NewLogger(t),
		Concurrency: 2,
	})

	resp := svc.ProcessBatch(context.Background(),
		[]pairing.Doc{
			doc("계획서_광주_1반_홍길동.txt", "4주간 알고리즘 문제 풀이"),
			doc("계획서_서울_2반_김철수.txt", "SQL 스터디"),
		},
		[]pairing.Doc{doc("결과보고서_광주_1반_홍길동.txt", "문제 40개 해결")},
	)

	assert.Equal(t, 1, resp.Summary.MatchedCount)
	assert.Equal(t, []string{"계획서_서울_2반_김철수.txt"}, resp.Summary.UnmatchedPlans)
	assert.Empty(t, resp.Summary.UnmatchedReports)
	require.Len(t, resp.Results, 1)

	item := resp.Results[0]
	assert.Equal(t, schemas.StatusSuccess, item.Status)
	assert.Equal(t, "결과보고서_광주_1반_홍길동.txt", item.Filename)
	assert.Equal(t, 70.0, gjson.Get(item.AnalysisResult, "total").Float())

	row, err := results.Get(context.Background(), item.ResultID)
	require.NoError(t, err)
	assert.Equal(t, "결과보고서_광주_1반_홍길동", row.Filename)
	require.NotNil(t, row.Campus)
	assert.Equal(t, "광주", *row.Campus)
	require.NotNil(t, row.ClassName)
	assert.Equal(t, "1반", *row.ClassName)
	require.NotNil(t, row.AuthorName)
	assert.Equal(t, "홍길동", *row.AuthorName)
	require.NotNil(t, row.CompletionRef)
	assert.Len(t, archive.objects, 1)
	assert.Equal(t, 1, inv.calls)

	require.Len(t, seen, 1)
	assert.Contains(t, seen[0], "[계획서]\n4주간 알고리즘 문제 풀이")
	assert.Contains(t, seen[0], "[결과보고서]\n문제 40개 해결")
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	results := newFakeResults()
	svc := New(Options{
		Completer: completerFunc(func(_ context.Context, _, content string) (string, error) {
			switch {
			case strings.Contains(content, "timeout"):
				return "", context.DeadlineExceeded
			case strings.Contains(content, "prose"):
				return "이 보고서는 훌륭합니다.", nil
			case strings.Contains(content, "no-total"):
				return `{"photo_count_detected": 2, "final_comment": "ok"}`, nil
			}
			return goodCompletion, nil
		}),
		Results:     results,
		Log:         zaptest.NewLogger(t),
		Concurrency: 4,
	})

	resp := svc.ProcessBatch(context.Background(),
		[]pairing.Doc{
			doc("계획서_광주_1반_A.txt", "plan a"),
			doc("계획서_광주_1반_B.txt", "plan b"),
			doc("계획서_광주_1반_C.txt", "plan c"),
			doc("계획서_광주_1반_D.txt", "plan d"),
		},
		[]pairing.Doc{
			doc("결과보고서_광주_1반_A.txt", "fine"),
			doc("결과보고서_광주_1반_B.txt", "timeout"),
			doc("결과보고서_광주_1반_C.txt", "prose"),
			doc("결과보고서_광주_1반_D.txt", "no-total"),
		},
	)

	require.Len(t, resp.Results, 4)
	byFile := map[string]schemas.UploadItem{}
	for _, it := range resp.Results {
		byFile[it.Filename] = it
	}

	assert.Equal(t, schemas.StatusSuccess, byFile["결과보고서_광주_1반_A.txt"].Status)

	b := byFile["결과보고서_광주_1반_B.txt"]
	assert.Equal(t, schemas.StatusError, b.Status)
	assert.Contains(t, b.Error, "LLM request failed")
	assert.Empty(t, b.AnalysisResult)

	c := byFile["결과보고서_광주_1반_C.txt"]
	assert.Equal(t, schemas.StatusError, c.Status)
	assert.Equal(t, "이 보고서는 훌륭합니다.", c.AnalysisResult)

	d := byFile["결과보고서_광주_1반_D.txt"]
	assert.Equal(t, schemas.StatusError, d.Status)
	assert.Contains(t, d.Error, ErrNotPersistable.Error())

	assert.Len(t, results.rows, 1)
}

func TestProcessBatchStoreFailureKeepsRecord(t *testing.T) {
	results := newFakeResults()
	results.failFor = "결과보고서_광주_1반_A"
	svc := New(Options{
		Completer: completerFunc(func(context.Context, string, string) (string, error) { return goodCompletion, nil }),
		Results:   results,
	})
	resp := svc.ProcessBatch(context.Background(),
		[]pairing.Doc{doc("계획서_광주_1반_A.txt", "a")},
		[]pairing.Doc{doc("결과보고서_광주_1반_A.txt", "a")},
	)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, schemas.StatusError, resp.Results[0].Status)
	assert.Contains(t, resp.Results[0].Error, "save result")
	assert.True(t, gjson.Valid(resp.Results[0].AnalysisResult))
}

func TestProcessBatchUnreadableDocument(t *testing.T) {
	called := false
	svc := New(Options{
		Completer: completerFunc(func(context.Context, string, string) (string, error) {
			called = true
			return goodCompletion, nil
		}),
		Results: newFakeResults(),
	})
	resp := svc.ProcessBatch(context.Background(),
		[]pairing.Doc{doc("계획서_광주_1반_A.xlsx", "not a zip")},
		[]pairing.Doc{doc("결과보고서_광주_1반_A.txt", "a")},
	)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, schemas.StatusError, resp.Results[0].Status)
	assert.Contains(t, resp.Results[0].Error, "read plan")
	assert.False(t, called)
}

func TestProcessBatchEvaluatesUnmatchedWhenEnabled(t *testing.T) {
	results := newFakeResults()
	svc := New(Options{
		Completer: completerFunc(func(_ context.Context, _, content string) (string, error) {
			assert.NotContains(t, content, "[계획서]")
			return goodCompletion, nil
		}),
		Results:       results,
		EvalUnmatched: true,
	})
	resp := svc.ProcessBatch(context.Background(), nil,
		[]pairing.Doc{doc("결과보고서_광주_1반_홍길동.txt", "report only")})

	assert.Equal(t, 0, resp.Summary.MatchedCount)
	assert.Equal(t, []string{"결과보고서_광주_1반_홍길동.txt"}, resp.Summary.UnmatchedReports)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, schemas.StatusSuccess, resp.Results[0].Status)
}

func TestProcessBatchEmpty(t *testing.T) {
	svc := New(Options{Results: newFakeResults()})
	resp := svc.ProcessBatch(context.Background(), nil, nil)
	assert.Equal(t, 0, resp.Summary.MatchedCount)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Summary.UnmatchedPlans)
}

func TestRecordNormalizesScores(t *testing.T) {
	svc := New(Options{})
	completion := `{"scores_raw": {"plan_specificity": 5, "result_specificity_goal": 5},
		"scores_weighted": {"plan_specificity": 5},
		"total": 99, "photo_count_detected": 1}`
	rec, err := svc.record(svc.log, completion)
	require.NoError(t, err)
	require.NotNil(t, rec.Total)
	assert.InDelta(t, 40.0, *rec.Total, 1e-9)
	assert.InDelta(t, 10.0, rec.ScoresWeighted["plan_specificity"], 1e-9)
	assert.InDelta(t, 40.0, gjson.GetBytes(rec.Raw, "total").Float(), 1e-9)
	assert.InDelta(t, 30.0, gjson.GetBytes(rec.Raw, "scores_weighted.result_specificity_goal").Float(), 1e-9)
}

func TestRecordExtractionFailure(t *testing.T) {
	svc := New(Options{})
	_, err := svc.record(svc.log, "{broken")
	var f extract.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "{broken", f.Original)
}

func TestCheckPersistableDecoded(t *testing.T) {
	ok := extract.Decode([]byte(`{"total": "55.5", "photo_count_detected": "2"}`))
	rec, _ := ok.Record()
	assert.NoError(t, checkPersistable(rec))

	for _, raw := range []string{
		`{"photo_count_detected": 2}`,
		`{"total": 50}`,
		`{"total": "many", "photo_count_detected": 2}`,
		`{"total": 50, "photo_count_detected": -1}`,
	} {
		rec, _ := extract.Decode([]byte(raw)).Record()
		assert.ErrorIs(t, checkPersistable(rec), ErrNotPersistable, raw)
	}
}

func TestReevaluate(t *testing.T) {
	results := newFakeResults()
	archive := &fakeArchive{objects: map[string][]byte{}}
	ctx := context.Background()

	ref, err := archive.PutJSON(ctx, completionPrefix, ArchivedCompletion{Completion: goodCompletion})
	require.NoError(t, err)
	stale := 12.0
	id, err := results.Insert(ctx, db.AnalysisResult{Filename: "a", TotalScore: &stale, CompletionRef: &ref})
	require.NoError(t, err)
	bare, err := results.Insert(ctx, db.AnalysisResult{Filename: "b"})
	require.NoError(t, err)

	svc := New(Options{Results: results, Archive: archive})

	resp, err := svc.Reevaluate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, schemas.StatusSuccess, resp.Status)
	row, _ := results.Get(ctx, id)
	assert.InDelta(t, 70.0, *row.TotalScore, 1e-9)
	assert.Equal(t, 3, *row.PhotoCount)

	_, err = svc.Reevaluate(ctx, bare)
	assert.ErrorIs(t, err, ErrNoArchive)

	_, err = svc.Reevaluate(ctx, 999)
	assert.ErrorIs(t, err, db.ErrNotFound)
}
