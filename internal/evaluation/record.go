package evaluation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"study-evaluator/internal/extract"
	"study-evaluator/internal/rubric"
)

// ErrNotPersistable marks a decoded record that lacks the fields a stored
// result needs.
var ErrNotPersistable = errors.New("record is missing total or photo_count_detected")

const persistSchema = `{
  "type": "object",
  "required": ["total", "photo_count_detected"],
  "properties": {
    "total": {"type": ["number", "string"], "minimum": 0, "maximum": 100, "pattern": "^[0-9]+(\\.[0-9]+)?$"},
    "photo_count_detected": {"type": ["integer", "string"], "minimum": 0, "maximum": 2147483647, "pattern": "^[0-9]+$"}
  }
}`

var persistable = mustSchema(persistSchema)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(err)
	}
	return schema
}

// checkPersistable validates rec before it is written to the results table.
func checkPersistable(rec extract.Record) error {
	result, err := persistable.Validate(gojsonschema.NewBytesLoader(rec.Raw))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", ErrNotPersistable, strings.Join(errs, "; "))
	}
	if rec.Total == nil || rec.PhotoCountDetected == nil {
		return ErrNotPersistable
	}
	if *rec.Total < 0 || *rec.Total > rubric.V7.TotalMax() {
		return fmt.Errorf("%w: total %g is outside 0..%g", ErrNotPersistable, *rec.Total, rubric.V7.TotalMax())
	}
	return nil
}

const scoreTolerance = 0.01

// normalize recomputes weighted scores and total from scores_raw with the
// rubric. Records without raw scores are returned unchanged. mismatch
// reports whether the model's own arithmetic disagreed.
func normalize(rec extract.Record) (out extract.Record, mismatch bool, err error) {
	if len(rec.ScoresRaw) == 0 {
		return rec, false, nil
	}
	weighted, total := rubric.V7.Apply(rec.ScoresRaw)

	if rec.Total == nil || math.Abs(*rec.Total-total) > scoreTolerance {
		mismatch = true
	}
	for k, w := range weighted {
		if got, ok := rec.ScoresWeighted[k]; !ok || math.Abs(got-w) > scoreTolerance {
			mismatch = true
		}
	}
	out, err = rec.WithScores(weighted, total)
	return out, mismatch, err
}
