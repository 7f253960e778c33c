package schemas

import (
	"encoding/json"
	"time"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type UploadSummary struct {
	MatchedCount     int      `json:"matched_count"`
	UnmatchedPlans   []string `json:"unmatched_plans"`
	UnmatchedReports []string `json:"unmatched_reports"`
}

// UploadItem is the outcome of one evaluated pair. AnalysisResult holds the
// extracted JSON on success and the raw completion text when the record
// could not be stored.
type UploadItem struct {
	Key            string `json:"key,omitempty"`
	Filename       string `json:"filename"`
	Status         string `json:"status"`
	AnalysisResult string `json:"analysis_result,omitempty"`
	Error          string `json:"error,omitempty"`
	ResultID       int64  `json:"result_id,omitempty"`
}

type UploadResponse struct {
	Summary UploadSummary `json:"summary"`
	Results []UploadItem  `json:"results"`
}

type ResultFilter struct {
	Campus    string `json:"campus,omitempty"`
	ClassName string `json:"class_name,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Q         string `json:"q,omitempty"`
}

type ResultRow struct {
	ID         int64     `json:"id" db:"id"`
	Filename   string    `json:"filename" db:"filename"`
	TotalScore *float64  `json:"total_score" db:"total_score"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	Campus     *string   `json:"campus" db:"campus"`
	ClassName  *string   `json:"class_name" db:"class_name"`
	AuthorName *string   `json:"author_name" db:"author_name"`
}

type ResultDetail struct {
	Filename     string          `json:"filename"`
	AnalysisData json.RawMessage `json:"analysis_data"`
}

type FilterOptions struct {
	Campuses   []string `json:"campuses"`
	ClassNames []string `json:"class_names"`
}

type PlanRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Campus      string `json:"campus"`
	MemberCount int    `json:"member_count"`
	Plan        string `json:"plan"`
}

type ReportRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Campus      string `json:"campus"`
	MemberCount int    `json:"member_count"`
	Content     string `json:"content"`
	Reflection  string `json:"reflection"`
}

type SubmissionOut struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Campus      string          `json:"campus"`
	MemberCount int             `json:"member_count"`
	Plan        string          `json:"plan,omitempty"`
	Content     string          `json:"content,omitempty"`
	Reflection  string          `json:"reflection,omitempty"`
	Date        time.Time       `json:"date"`
	Status      string          `json:"status"`
	Total       *float64        `json:"total,omitempty"`
	Evaluation  json.RawMessage `json:"evaluation,omitempty"`
	Error       string          `json:"error,omitempty"`
}

type ReevaluateResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// LocalAnalysisResponse is the reply of the server-side local analysis run.
// FileProcessed is the path that was read, or the default-content label.
type LocalAnalysisResponse struct {
	FileProcessed  string `json:"file_processed"`
	AnalysisResult string `json:"analysis_result"`
}
