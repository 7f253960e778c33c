// Package client talks to the evaluation API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"study-evaluator/internal/pairing"
	"study-evaluator/internal/schemas"
)

var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx response. Its message is the status text
// ("Not Found"), without the code. Status keeps the full status line.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if text := strings.TrimPrefix(e.Status, strconv.Itoa(e.Code)+" "); text != "" && text != e.Status {
		return text
	}
	if text := http.StatusText(e.Code); text != "" {
		return text
	}
	return e.Status
}

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Minute},
	}
}

// Upload sends plans and reports for pairing and evaluation.
func (c *Client) Upload(ctx context.Context, plans, reports []pairing.Doc) (schemas.UploadResponse, error) {
	var out schemas.UploadResponse
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range []struct {
		field string
		docs  []pairing.Doc
	}{{"plan_files", plans}, {"report_files", reports}} {
		for _, d := range f.docs {
			part, err := mw.CreateFormFile(f.field, d.Name)
			if err != nil {
				return out, err
			}
			if _, err := part.Write(d.Data); err != nil {
				return out, err
			}
		}
	}
	if err := mw.Close(); err != nil {
		return out, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload-and-analyze", &buf)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return out, c.do(req, &out)
}

// ListResults fetches stored results. Empty filter fields are not sent.
func (c *Client) ListResults(ctx context.Context, f schemas.ResultFilter) ([]schemas.ResultRow, error) {
	q := url.Values{}
	for k, v := range map[string]string{
		"campus":     f.Campus,
		"class_name": f.ClassName,
		"start_date": f.StartDate,
		"end_date":   f.EndDate,
		"q":          f.Q,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	path := "/results"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var rows []schemas.ResultRow
	return rows, c.getJSON(ctx, path, &rows)
}

func (c *Client) GetResult(ctx context.Context, id int64) (schemas.ResultDetail, error) {
	var out schemas.ResultDetail
	return out, c.getJSON(ctx, "/results/"+strconv.FormatInt(id, 10), &out)
}

func (c *Client) FilterOptions(ctx context.Context) (schemas.FilterOptions, error) {
	var out schemas.FilterOptions
	return out, c.getJSON(ctx, "/filter-options", &out)
}

func (c *Client) Reevaluate(ctx context.Context, id int64) (schemas.ReevaluateResponse, error) {
	var out schemas.ReevaluateResponse
	return out, c.postJSON(ctx, fmt.Sprintf("/results/%d/reevaluate", id), nil, &out)
}

// AnalyzeLocal asks the server to evaluate the report found in its local
// report directory. Needs the API token.
func (c *Client) AnalyzeLocal(ctx context.Context) (schemas.LocalAnalysisResponse, error) {
	var out schemas.LocalAnalysisResponse
	return out, c.postJSON(ctx, "/run-local-analysis", nil, &out)
}

func (c *Client) SubmitPlan(ctx context.Context, p schemas.PlanRequest) (schemas.SubmissionOut, error) {
	var out schemas.SubmissionOut
	return out, c.postJSON(ctx, "/study-plans", p, &out)
}

func (c *Client) SubmitReport(ctx context.Context, r schemas.ReportRequest) (schemas.SubmissionOut, error) {
	var out schemas.SubmissionOut
	return out, c.postJSON(ctx, "/study-reports", r, &out)
}

func (c *Client) ListSubmissions(ctx context.Context, kind string) ([]schemas.SubmissionOut, error) {
	path, err := submissionPath(kind)
	if err != nil {
		return nil, err
	}
	var out []schemas.SubmissionOut
	return out, c.getJSON(ctx, path, &out)
}

func (c *Client) GetSubmission(ctx context.Context, kind, id string) (schemas.SubmissionOut, error) {
	var out schemas.SubmissionOut
	path, err := submissionPath(kind)
	if err != nil {
		return out, err
	}
	return out, c.getJSON(ctx, path+"/"+url.PathEscape(id), &out)
}

func submissionPath(kind string) (string, error) {
	switch kind {
	case "plan":
		return "/study-plans", nil
	case "report":
		return "/study-reports", nil
	}
	return "", fmt.Errorf("unknown submission kind %q", kind)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if res.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return &StatusError{Code: res.StatusCode, Status: res.Status, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
