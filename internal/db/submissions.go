package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrUnknownKind = errors.New("unknown submission kind")

var submissionTables = map[string]string{
	KindPlan:   "study_plans",
	KindReport: "study_reports",
}

const submissionColumns = `id, title, author, campus, member_count, body, reflection, date, status, total, evaluation, error`

// SubmissionStore keeps typed-form plans and reports, one table per kind.
type SubmissionStore struct {
	DB *sqlx.DB
}

func table(kind string) (string, error) {
	t, ok := submissionTables[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return t, nil
}

// Create stores sub and returns it with the server-assigned date.
func (s *SubmissionStore) Create(ctx context.Context, sub Submission) (Submission, error) {
	t, err := table(sub.Kind)
	if err != nil {
		return sub, err
	}
	err = s.DB.QueryRowxContext(ctx,
		`insert into `+t+` (id, title, author, campus, member_count, body, reflection, status)
		values ($1,$2,$3,$4,$5,$6,$7,$8) returning date`,
		sub.ID, sub.Title, sub.Author, sub.Campus, sub.MemberCount, sub.Body, sub.Reflection, sub.Status,
	).Scan(&sub.Date)
	if err != nil {
		return sub, fmt.Errorf("insert %s: %w", t, err)
	}
	return sub, nil
}

// List returns submissions of kind, newest first.
func (s *SubmissionStore) List(ctx context.Context, kind string) ([]Submission, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}
	subs := []Submission{}
	if err := s.DB.SelectContext(ctx, &subs, `select `+submissionColumns+` from `+t+` order by date desc`); err != nil {
		return nil, fmt.Errorf("list %s: %w", t, err)
	}
	for i := range subs {
		subs[i].Kind = kind
	}
	return subs, nil
}

func (s *SubmissionStore) Get(ctx context.Context, kind, id string) (Submission, error) {
	var sub Submission
	t, err := table(kind)
	if err != nil {
		return sub, err
	}
	err = s.DB.GetContext(ctx, &sub, `select `+submissionColumns+` from `+t+` where id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return sub, ErrNotFound
	}
	if err != nil {
		return sub, fmt.Errorf("get %s %s: %w", t, id, err)
	}
	sub.Kind = kind
	return sub, nil
}

// Grade records the evaluation outcome of a submission.
func (s *SubmissionStore) Grade(ctx context.Context, kind, id string, total *float64, evaluation []byte) error {
	return s.finish(ctx, kind, id, StatusGraded, total, evaluation, nil)
}

// Fail records why a submission could not be evaluated. raw, when not nil,
// is kept as the evaluation payload.
func (s *SubmissionStore) Fail(ctx context.Context, kind, id, reason string, raw []byte) error {
	return s.finish(ctx, kind, id, StatusFailed, nil, raw, &reason)
}

func (s *SubmissionStore) finish(ctx context.Context, kind, id, status string, total *float64, evaluation []byte, reason *string) error {
	t, err := table(kind)
	if err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx,
		`update `+t+` set status=$1, total=$2, evaluation=$3, error=$4 where id=$5`,
		status, total, evaluation, reason, id)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", t, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
