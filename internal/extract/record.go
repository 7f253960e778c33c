package extract

import (
	"math"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Record is a decoded evaluation. Fields the model left out stay nil so the
// renderer can tell "absent" from "zero".
type Record struct {
	ScoresRaw          map[string]float64
	ScoresWeighted     map[string]float64
	Total              *float64
	PhotoCountDetected *int
	Rationale          map[string]string
	Uncertainties      []string
	FinalComment       *string

	// Raw is the compact JSON the record was decoded from, unknown keys
	// included.
	Raw []byte
}

func recordFrom(raw []byte) Record {
	doc := gjson.ParseBytes(raw)
	return Record{
		ScoresRaw:          numberMap(doc.Get("scores_raw")),
		ScoresWeighted:     numberMap(doc.Get("scores_weighted")),
		Total:              number(doc.Get("total")),
		PhotoCountDetected: count(doc.Get("photo_count_detected")),
		Rationale:          stringMap(doc.Get("rationale")),
		Uncertainties:      stringList(doc.Get("uncertainties")),
		FinalComment:       text(doc.Get("final_comment")),
		Raw:                raw,
	}
}

// WithScores returns a copy of r whose weighted scores and total are replaced,
// in both the typed fields and Raw.
func (r Record) WithScores(weighted map[string]float64, total float64) (Record, error) {
	raw, err := sjson.SetBytes(append([]byte(nil), r.Raw...), "scores_weighted", weighted)
	if err != nil {
		return r, err
	}
	raw, err = sjson.SetBytes(raw, "total", total)
	if err != nil {
		return r, err
	}
	out := r
	out.ScoresWeighted = make(map[string]float64, len(weighted))
	for k, v := range weighted {
		out.ScoresWeighted[k] = v
	}
	out.Total = &total
	out.Raw = raw
	return out, nil
}

func numberValue(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Float(), true
	case gjson.String:
		f, err := strconv.ParseFloat(v.Str, 64)
		return f, err == nil
	}
	return 0, false
}

func number(v gjson.Result) *float64 {
	f, ok := numberValue(v)
	if !ok {
		return nil
	}
	return &f
}

// count reads a non-negative whole count. Values past MaxInt32 are treated
// as absent.
func count(v gjson.Result) *int {
	f, ok := numberValue(v)
	if !ok || f < 0 || f > math.MaxInt32 || math.IsNaN(f) {
		return nil
	}
	n := int(f)
	return &n
}

func text(v gjson.Result) *string {
	if !v.Exists() || v.Type == gjson.Null || v.IsObject() || v.IsArray() {
		return nil
	}
	s := v.String()
	return &s
}

func numberMap(v gjson.Result) map[string]float64 {
	if !v.IsObject() {
		return nil
	}
	out := map[string]float64{}
	v.ForEach(func(key, value gjson.Result) bool {
		if f, ok := numberValue(value); ok {
			out[key.String()] = f
		}
		return true
	})
	return out
}

func stringMap(v gjson.Result) map[string]string {
	if !v.IsObject() {
		return nil
	}
	out := map[string]string{}
	v.ForEach(func(key, value gjson.Result) bool {
		if s := text(value); s != nil {
			out[key.String()] = *s
		}
		return true
	})
	return out
}

func stringList(v gjson.Result) []string {
	switch {
	case v.IsArray():
		var out []string
		for _, item := range v.Array() {
			if s := text(item); s != nil {
				out = append(out, *s)
			}
		}
		return out
	case v.Type == gjson.String && v.Str != "":
		return []string{v.Str}
	}
	return nil
}
