package render

// Locale carries the fixed display strings of one language.
type Locale struct {
	Code         string
	SuccessGlyph string
	FailureGlyph string
	ResultTitle  string
	FailedTitle  string
	Total        string
	Photos       string
	PointUnit    string
	PhotoUnit    string
	Criteria     string
	Notes        string
	Comment      string
	None         string
	NoComment    string
	NotAvailable string
	Original     string
}

var Korean = Locale{
	Code:         "ko",
	SuccessGlyph: "📊",
	FailureGlyph: "❌",
	ResultTitle:  "분석 결과",
	FailedTitle:  "분석 실패",
	Total:        "총점",
	Photos:       "감지된 사진 수",
	PointUnit:    "점",
	PhotoUnit:    "장",
	Criteria:     "항목별 세부 평가",
	Notes:        "참고 사항",
	Comment:      "최종 코멘트",
	None:         "없음",
	NoComment:    "코멘트 없음",
	NotAvailable: "N/A",
	Original:     "원본 응답",
}

var English = Locale{
	Code:         "en",
	SuccessGlyph: "📊",
	FailureGlyph: "❌",
	ResultTitle:  "Evaluation",
	FailedTitle:  "evaluation failed",
	Total:        "Total",
	Photos:       "Detected photos",
	PointUnit:    "pts",
	PhotoUnit:    "",
	Criteria:     "Criteria",
	Notes:        "Notes",
	Comment:      "Final comment",
	None:         "none",
	NoComment:    "no comment",
	NotAvailable: "N/A",
	Original:     "Original response",
}

// LocaleFor returns the locale for code, Korean when unknown.
func LocaleFor(code string) Locale {
	if code == English.Code {
		return English
	}
	return Korean
}
