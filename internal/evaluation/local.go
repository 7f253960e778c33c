package evaluation

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"study-evaluator/internal/documents"
	"study-evaluator/internal/metrics"
	"study-evaluator/internal/prompt"
	"study-evaluator/internal/schemas"
)

// DefaultSourceLabel is reported as the processed file when no local report
// could be found or read.
const DefaultSourceLabel = "기본값 (LOCAL_DEFAULT_CONTENT)"

// LocalSource is a directory on the API host searched for a report file.
type LocalSource struct {
	Dir            string
	Keywords       []string
	DefaultContent string
}

// AnalyzeLocal evaluates the first file in the local source directory whose
// name holds every keyword. When none matches, or it cannot be read, the
// default content is evaluated instead. The completion is returned as is.
func (s *Service) AnalyzeLocal(ctx context.Context) (schemas.LocalAnalysisResponse, error) {
	log := s.log.With(zap.String("dir", s.local.Dir), zap.Strings("keywords", s.local.Keywords))
	resp := schemas.LocalAnalysisResponse{FileProcessed: DefaultSourceLabel}
	content := s.local.DefaultContent

	if path, ok := findByKeywords(log, s.local.Dir, s.local.Keywords); ok {
		text, err := readLocal(path)
		if err != nil {
			log.Warn("local report unreadable; using default content", zap.String("path", path), zap.Error(err))
		} else {
			log.Info("local report read", zap.String("path", path))
			content = text
			resp.FileProcessed = path
		}
	}

	text, err := s.complete(ctx, prompt.System(), content)
	if err != nil {
		metrics.EvaluationsTotal.WithLabelValues("local", schemas.StatusError).Inc()
		return resp, err
	}
	metrics.EvaluationsTotal.WithLabelValues("local", schemas.StatusSuccess).Inc()
	resp.AnalysisResult = text
	return resp, nil
}

// findByKeywords returns the first regular file in dir, in name order, whose
// NFC name contains every keyword.
func findByKeywords(log *zap.Logger, dir string, keywords []string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn("local report directory unavailable", zap.Error(err))
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := norm.NFC.String(e.Name())
		if containsAll(name, keywords) {
			return filepath.Join(dir, e.Name()), true
		}
	}
	log.Warn("no local report matches keywords")
	return "", false
}

func containsAll(name string, keywords []string) bool {
	for _, k := range keywords {
		if !strings.Contains(name, norm.NFC.String(k)) {
			return false
		}
	}
	return true
}

func readLocal(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return documents.Read(filepath.Base(path), data)
}
