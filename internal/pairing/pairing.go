// Package pairing matches uploaded plan and report documents by the
// campus_class_author suffix of their file names.
package pairing

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Doc is an uploaded document. Only Name takes part in matching.
type Doc struct {
	Name string
	Data []byte
}

type Pair struct {
	Key    string
	Plan   Doc
	Report Doc
}

// Target is the document a pair's result is filed under: the report.
func (p Pair) Target() Doc { return p.Report }

type Result struct {
	Pairs            []Pair
	UnmatchedPlans   []Doc
	UnmatchedReports []Doc
}

// Stem returns the NFC-normalized file name without directory or extension.
func Stem(filename string) string {
	base := filepath.Base(filename)
	return norm.NFC.String(strings.TrimSuffix(base, filepath.Ext(base)))
}

// MatchingKey returns the last three "_"-separated parts of the file stem.
// Names with fewer than three parts have no key.
func MatchingKey(filename string) (string, bool) {
	parts := strings.Split(Stem(filename), "_")
	if len(parts) < 3 {
		return "", false
	}
	return strings.Join(parts[len(parts)-3:], "_"), true
}

// Match pairs plans with reports sharing a key. Output order follows the plan
// upload order; a key already taken leaves later documents unmatched.
func Match(plans, reports []Doc) Result {
	var res Result

	reportsByKey := map[string]int{}
	for i, r := range reports {
		key, ok := MatchingKey(r.Name)
		if !ok {
			continue
		}
		if _, dup := reportsByKey[key]; !dup {
			reportsByKey[key] = i
		}
	}

	usedReports := make([]bool, len(reports))
	pairedKeys := map[string]bool{}
	for _, p := range plans {
		key, ok := MatchingKey(p.Name)
		if !ok || pairedKeys[key] {
			res.UnmatchedPlans = append(res.UnmatchedPlans, p)
			continue
		}
		ri, found := reportsByKey[key]
		if !found {
			res.UnmatchedPlans = append(res.UnmatchedPlans, p)
			continue
		}
		pairedKeys[key] = true
		usedReports[ri] = true
		res.Pairs = append(res.Pairs, Pair{Key: key, Plan: p, Report: reports[ri]})
	}
	for i, r := range reports {
		if !usedReports[i] {
			res.UnmatchedReports = append(res.UnmatchedReports, r)
		}
	}
	return res
}

// Names returns the file names of docs.
func Names(docs []Doc) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Name)
	}
	return out
}
