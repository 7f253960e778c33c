package pairing

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	campuses       = normalized("광주", "구미", "서울", "대전", "부울경")
	classPattern   = regexp.MustCompile(`^\d+반$`)
	authorSplitter = regexp.MustCompile(`[.\s-]`)
)

// Info is the submitter metadata encoded in a file name such as
// "스터디결과보고서_광주_1반_홍길동.xlsx". Missing parts are nil.
type Info struct {
	Campus    *string `json:"campus"`
	ClassName *string `json:"class_name"`
	Author    *string `json:"author_name"`
}

func normalized(names ...string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[norm.NFC.String(n)] = true
	}
	return out
}

// ParseInfo reads campus, class and author from filename. The expected shape
// is ..._campus_class_author; otherwise parts are picked up wherever they
// appear.
func ParseInfo(filename string) Info {
	parts := strings.Split(Stem(filename), "_")

	if len(parts) >= 4 {
		campus := strings.TrimSpace(parts[len(parts)-3])
		class := strings.TrimSpace(parts[len(parts)-2])
		author := strings.TrimSpace(parts[len(parts)-1])
		if campuses[campus] && classPattern.MatchString(class) {
			author = authorSplitter.Split(author, 2)[0]
			return Info{Campus: &campus, ClassName: &class, Author: &author}
		}
	}

	var info Info
	for _, part := range parts {
		p := part
		switch {
		case campuses[p]:
			info.Campus = &p
		case classPattern.MatchString(p):
			info.ClassName = &p
		}
	}
	if info.Campus == nil && info.ClassName == nil {
		return Info{}
	}
	for i := len(parts) - 1; i >= 0; i-- {
		p := parts[i]
		if campuses[p] || classPattern.MatchString(p) ||
			strings.Contains(p, "보고서") || strings.Contains(p, "계획서") {
			continue
		}
		info.Author = &p
		break
	}
	return info
}
