package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"study-evaluator/internal/schemas"
)

// ResultStore persists evaluated document pairs.
type ResultStore struct {
	DB *sqlx.DB
}

func (s *ResultStore) Insert(ctx context.Context, r AnalysisResult) (int64, error) {
	var id int64
	err := s.DB.QueryRowxContext(ctx,
		`insert into analysis_results
			(filename, total_score, photo_count, analysis_json, campus, class_name, author_name, completion_ref)
		values ($1,$2,$3,$4,$5,$6,$7,$8) returning id`,
		r.Filename, r.TotalScore, r.PhotoCount, r.AnalysisJSON, r.Campus, r.ClassName, r.AuthorName, r.CompletionRef,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert analysis result: %w", err)
	}
	return id, nil
}

// List returns result rows newest first. Empty filter fields are ignored.
func (s *ResultStore) List(ctx context.Context, f schemas.ResultFilter) ([]schemas.ResultRow, error) {
	query := `select id, filename, total_score, created_at, campus, class_name, author_name from analysis_results`
	var (
		conds []string
		args  []any
	)
	if f.Campus != "" {
		conds = append(conds, "campus = ?")
		args = append(args, f.Campus)
	}
	if f.ClassName != "" {
		conds = append(conds, "class_name = ?")
		args = append(args, f.ClassName)
	}
	if f.StartDate != "" {
		conds = append(conds, "created_at::date >= ?::date")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		conds = append(conds, "created_at::date <= ?::date")
		args = append(args, f.EndDate)
	}
	if f.Q != "" {
		conds = append(conds, "(author_name ilike ? or filename ilike ?)")
		like := "%" + f.Q + "%"
		args = append(args, like, like)
	}
	if len(conds) > 0 {
		query += " where " + strings.Join(conds, " and ")
	}
	query += " order by created_at desc"

	rows := []schemas.ResultRow{}
	if err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list analysis results: %w", err)
	}
	return rows, nil
}

func (s *ResultStore) Get(ctx context.Context, id int64) (AnalysisResult, error) {
	var r AnalysisResult
	err := s.DB.GetContext(ctx, &r, `select * from analysis_results where id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("get analysis result %d: %w", id, err)
	}
	return r, nil
}

func (s *ResultStore) FilterOptions(ctx context.Context) (schemas.FilterOptions, error) {
	opts := schemas.FilterOptions{Campuses: []string{}, ClassNames: []string{}}
	if err := s.DB.SelectContext(ctx, &opts.Campuses,
		`select distinct campus from analysis_results where campus is not null order by campus`); err != nil {
		return opts, fmt.Errorf("list campuses: %w", err)
	}
	if err := s.DB.SelectContext(ctx, &opts.ClassNames,
		`select distinct class_name from analysis_results where class_name is not null order by class_name`); err != nil {
		return opts, fmt.Errorf("list class names: %w", err)
	}
	return opts, nil
}

// UpdateAnalysis replaces the stored record of an existing result.
func (s *ResultStore) UpdateAnalysis(ctx context.Context, id int64, total float64, photos int, analysis []byte) error {
	return WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		var exists int64
		if err := tx.GetContext(ctx, &exists, `select id from analysis_results where id=$1 for update`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		_, err := tx.ExecContext(ctx,
			`update analysis_results set total_score=$1, photo_count=$2, analysis_json=$3 where id=$4`,
			total, photos, analysis, id)
		return err
	})
}
