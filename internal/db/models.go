package db

import "time"

type AnalysisResult struct {
	ID            int64     `db:"id"`
	Filename      string    `db:"filename"`
	TotalScore    *float64  `db:"total_score"`
	PhotoCount    *int      `db:"photo_count"`
	AnalysisJSON  []byte    `db:"analysis_json"`
	Campus        *string   `db:"campus"`
	ClassName     *string   `db:"class_name"`
	AuthorName    *string   `db:"author_name"`
	CompletionRef *string   `db:"completion_ref"`
	CreatedAt     time.Time `db:"created_at"`
}

const (
	KindPlan   = "plan"
	KindReport = "report"

	StatusPending = "채점대기"
	StatusGraded  = "채점완료"
	StatusFailed  = "채점실패"
)

// Submission is a typed-form study plan or report. Body holds the plan text
// or the report content.
type Submission struct {
	ID          string    `db:"id"`
	Kind        string    `db:"-"`
	Title       string    `db:"title"`
	Author      string    `db:"author"`
	Campus      string    `db:"campus"`
	MemberCount int       `db:"member_count"`
	Body        string    `db:"body"`
	Reflection  string    `db:"reflection"`
	Date        time.Time `db:"date"`
	Status      string    `db:"status"`
	Total       *float64  `db:"total"`
	Evaluation  []byte    `db:"evaluation"`
	Error       *string   `db:"error"`
}
