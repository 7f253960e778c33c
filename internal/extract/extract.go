// Package extract recovers an evaluation record from the free text returned
// by a completion endpoint.
//
// The heuristic is deliberately permissive: the JSON object is taken to be
// everything between the first '{' and the last '}' of the search window, so
// prose that carries its own unrelated braces will be mis-extracted. Stored
// results depend on this exact behaviour.
package extract

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

type Reason string

const (
	ReasonNoJSON      Reason = "no-json-object-found"
	ReasonInvalidJSON Reason = "invalid-json"
)

// Failure describes why no record could be recovered. Original is always the
// untouched completion text.
type Failure struct {
	Reason   Reason `json:"reason"`
	Detail   string `json:"detail,omitempty"`
	Original string `json:"original"`
}

func (f Failure) Error() string {
	if f.Detail == "" {
		return string(f.Reason)
	}
	return string(f.Reason) + ": " + f.Detail
}

// Outcome holds either a record or a failure, never both.
type Outcome struct {
	record  *Record
	failure *Failure
}

func Success(r Record) Outcome {
	return Outcome{record: &r}
}

func Fail(reason Reason, original, detail string) Outcome {
	return Outcome{failure: &Failure{Reason: reason, Detail: detail, Original: original}}
}

func (o Outcome) OK() bool { return o.record != nil }

func (o Outcome) Record() (Record, bool) {
	if o.record == nil {
		return Record{}, false
	}
	return *o.record, true
}

func (o Outcome) Failure() (Failure, bool) {
	if o.failure == nil {
		return Failure{}, false
	}
	return *o.failure, true
}

var (
	openFence  = regexp.MustCompile("```[ \\t]*(?:json|JSON)?[ \\t]*\\r?\\n")
	closeFence = regexp.MustCompile("\\n[ \\t]*```")
)

// fenced returns the body of the first markdown fence in raw. The closing
// fence must start a line, so backticks inside JSON string values never end
// the block. An unclosed fence runs to the end of raw.
func fenced(raw string) (string, bool) {
	open := openFence.FindStringIndex(raw)
	if open == nil {
		return "", false
	}
	body := raw[open[1]:]
	if closes := closeFence.FindAllStringIndex(body, -1); len(closes) > 0 {
		body = body[:closes[len(closes)-1][0]]
	}
	return body, true
}

// Extract finds the JSON object in raw and decodes it. A fenced markdown
// block narrows the search to its body when the body holds an object.
func Extract(raw string) Outcome {
	window := raw
	if body, ok := fenced(raw); ok && strings.Contains(body, "{") {
		window = body
	}

	start := strings.Index(window, "{")
	end := strings.LastIndex(window, "}")
	if start == -1 || end == -1 || end < start {
		return Fail(ReasonNoJSON, raw, "")
	}
	return decode([]byte(window[start:end+1]), raw)
}

// Decode parses an already isolated JSON object, such as a stored record.
func Decode(b []byte) Outcome {
	return decode(b, string(b))
}

func decode(span []byte, original string) Outcome {
	var obj map[string]any
	if err := json.Unmarshal(span, &obj); err != nil {
		return Fail(ReasonInvalidJSON, original, err.Error())
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, span); err != nil {
		return Fail(ReasonInvalidJSON, original, err.Error())
	}
	return Success(recordFrom(compact.Bytes()))
}
