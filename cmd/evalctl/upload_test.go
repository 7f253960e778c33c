package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-evaluator/internal/batch"
	"study-evaluator/internal/render"
	"study-evaluator/internal/schemas"
)

func TestDocsUsesBaseNames(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "계획서_광주_1반_홍길동.txt")
	require.NoError(t, os.WriteFile(p, []byte("plan"), 0o600))

	got, err := docs([]string{p})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "계획서_광주_1반_홍길동.txt", got[0].Name)
	assert.Equal(t, []byte("plan"), got[0].Data)

	_, err = docs([]string{filepath.Join(dir, "missing.txt")})
	assert.Error(t, err)
}

func TestPrintSummary(t *testing.T) {
	flagLocale = "ko"
	s := batch.Summarize(schemas.UploadResponse{
		Summary: schemas.UploadSummary{MatchedCount: 1, UnmatchedPlans: []string{"계획서_서울_2반_김철수.txt"}},
		Results: []schemas.UploadItem{{
			Filename:       "결과보고서_광주_1반_홍길동.txt",
			Status:         schemas.StatusSuccess,
			AnalysisResult: `{"total": 70, "photo_count_detected": 3, "final_comment": "잘했어요"}`,
		}},
	}, render.Korean)

	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, s))
	out := buf.String()
	assert.Contains(t, out, "matched: 1  evaluated: 1/1")
	assert.Contains(t, out, "unmatched plans: 계획서_서울_2반_김철수.txt")
	assert.Contains(t, out, "unmatched reports: 없음")
	assert.Contains(t, out, "잘했어요")
}
