// Package batch aggregates an upload response for display.
package batch

import (
	"study-evaluator/internal/extract"
	"study-evaluator/internal/render"
	"study-evaluator/internal/schemas"
)

type Summary struct {
	MatchedCount     int           `json:"matched_count"`
	UnmatchedPlans   []string      `json:"unmatched_plans"`
	UnmatchedReports []string      `json:"unmatched_reports"`
	Items            []render.View `json:"items"`
}

// Succeeded counts the items that rendered a record.
func (s Summary) Succeeded() int {
	n := 0
	for _, it := range s.Items {
		if it.OK {
			n++
		}
	}
	return n
}

// Summarize renders every result entry in order. A failing entry only
// affects its own view.
func Summarize(resp schemas.UploadResponse, locale render.Locale) Summary {
	s := Summary{
		MatchedCount:     resp.Summary.MatchedCount,
		UnmatchedPlans:   append([]string{}, resp.Summary.UnmatchedPlans...),
		UnmatchedReports: append([]string{}, resp.Summary.UnmatchedReports...),
		Items:            make([]render.View, 0, len(resp.Results)),
	}
	for _, item := range resp.Results {
		s.Items = append(s.Items, Item(item, locale))
	}
	return s
}

func Item(item schemas.UploadItem, locale render.Locale) render.View {
	if item.Status != schemas.StatusSuccess {
		msg := item.Error
		if msg == "" {
			msg = item.Status
		}
		return render.RenderError(item.Filename, msg, item.AnalysisResult, locale)
	}
	return render.Render(extract.Extract(item.AnalysisResult), item.Filename, locale)
}
