// Package render turns extraction outcomes into display models. It has no
// side effects; callers decide how a View is presented.
package render

import (
	"sort"

	"study-evaluator/internal/extract"
	"study-evaluator/internal/rubric"
)

// ReasonItemFailed marks a failure reported by the server for one batch item.
const ReasonItemFailed = "item-failed"

type CriterionRow struct {
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	Weighted  float64 `json:"weighted"`
	Rationale string  `json:"rationale"`
	Known     bool    `json:"known"`
}

type FailureView struct {
	Reason   string `json:"reason"`
	Detail   string `json:"detail,omitempty"`
	Original string `json:"original,omitempty"`
}

type View struct {
	Label  string `json:"label"`
	Glyph  string `json:"glyph"`
	OK     bool   `json:"ok"`
	Locale string `json:"locale"`

	Total           float64        `json:"total,omitempty"`
	TotalKnown      bool           `json:"total_known,omitempty"`
	PhotoCount      int            `json:"photo_count,omitempty"`
	PhotoCountKnown bool           `json:"photo_count_known,omitempty"`
	Criteria        []CriterionRow `json:"criteria,omitempty"`
	Uncertainties   []string       `json:"uncertainties,omitempty"`
	FinalComment    string         `json:"final_comment,omitempty"`

	Failure *FailureView `json:"failure,omitempty"`
}

// Rationales returns the criterion rows that carry justification text.
func (v View) Rationales() []CriterionRow {
	var out []CriterionRow
	for _, row := range v.Criteria {
		if row.Rationale != "" {
			out = append(out, row)
		}
	}
	return out
}

// Render builds the view for outcome. label is the document name shown in the
// header.
func Render(outcome extract.Outcome, label string, locale Locale) View {
	if f, failed := outcome.Failure(); failed {
		return failureView(label, locale, FailureView{
			Reason:   string(f.Reason),
			Detail:   f.Detail,
			Original: f.Original,
		})
	}
	rec, _ := outcome.Record()
	return recordView(rec, label, locale)
}

// RenderError builds the failure view for an item the server could not
// evaluate. original may be empty.
func RenderError(label, message, original string, locale Locale) View {
	return failureView(label, locale, FailureView{
		Reason:   ReasonItemFailed,
		Detail:   message,
		Original: original,
	})
}

func failureView(label string, locale Locale, f FailureView) View {
	return View{
		Label:   label,
		Glyph:   locale.FailureGlyph,
		Locale:  locale.Code,
		Failure: &f,
	}
}

func recordView(rec extract.Record, label string, locale Locale) View {
	v := View{
		Label:  label,
		Glyph:  locale.SuccessGlyph,
		OK:     true,
		Locale: locale.Code,
	}
	if rec.Total != nil {
		v.Total, v.TotalKnown = *rec.Total, true
	}
	if rec.PhotoCountDetected != nil {
		v.PhotoCount, v.PhotoCountKnown = *rec.PhotoCountDetected, true
	}

	for _, key := range rubric.V7.Keys() {
		v.Criteria = append(v.Criteria, CriterionRow{
			Key:       key,
			Label:     rubric.V7.Label(key, locale.Code),
			Weighted:  rec.ScoresWeighted[key],
			Rationale: rec.Rationale[key],
			Known:     true,
		})
	}
	for _, key := range unknownKeys(rec) {
		v.Criteria = append(v.Criteria, CriterionRow{
			Key:       key,
			Label:     key,
			Weighted:  rec.ScoresWeighted[key],
			Rationale: rec.Rationale[key],
		})
	}

	if len(rec.Uncertainties) > 0 {
		v.Uncertainties = append([]string(nil), rec.Uncertainties...)
	} else {
		v.Uncertainties = []string{locale.None}
	}

	v.FinalComment = locale.NoComment
	if rec.FinalComment != nil && *rec.FinalComment != "" {
		v.FinalComment = *rec.FinalComment
	}
	return v
}

func unknownKeys(rec extract.Record) []string {
	seen := map[string]bool{}
	var keys []string
	add := func(k string) {
		if !rubric.V7.Has(k) && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for k := range rec.Rationale {
		add(k)
	}
	for k := range rec.ScoresWeighted {
		add(k)
	}
	sort.Strings(keys)
	return keys
}
