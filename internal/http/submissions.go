package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"study-evaluator/internal/db"
	"study-evaluator/internal/schemas"
	"study-evaluator/internal/worker"
)

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	var req schemas.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{err.Error()})
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Plan) == "" {
		writeJSON(w, http.StatusBadRequest, errResp{"title and plan are required"})
		return
	}
	s.createSubmission(w, r, db.Submission{
		Kind:        db.KindPlan,
		Title:       req.Title,
		Author:      req.Author,
		Campus:      req.Campus,
		MemberCount: req.MemberCount,
		Body:        req.Plan,
	})
}

func (s *Server) createReport(w http.ResponseWriter, r *http.Request) {
	var req schemas.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{err.Error()})
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, errResp{"title and content are required"})
		return
	}
	s.createSubmission(w, r, db.Submission{
		Kind:        db.KindReport,
		Title:       req.Title,
		Author:      req.Author,
		Campus:      req.Campus,
		MemberCount: req.MemberCount,
		Body:        req.Content,
		Reflection:  req.Reflection,
	})
}

func (s *Server) createSubmission(w http.ResponseWriter, r *http.Request, sub db.Submission) {
	if sub.MemberCount < 0 {
		writeJSON(w, http.StatusBadRequest, errResp{"member_count must not be negative"})
		return
	}
	sub.ID = uuid.NewString()
	sub.Status = db.StatusPending

	created, err := s.submissions.Create(r.Context(), sub)
	if err != nil {
		s.log.Error("create submission", zap.String("kind", sub.Kind), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errResp{err.Error()})
		return
	}

	task, err := worker.NewEvaluateTask(created.Kind, created.ID)
	if err == nil {
		_, err = s.queue.EnqueueContext(r.Context(), task)
	}
	if err != nil {
		s.log.Error("enqueue evaluation", zap.String("id", created.ID), zap.Error(err))
		reason := "enqueue evaluation: " + err.Error()
		if ferr := s.submissions.Fail(r.Context(), created.Kind, created.ID, reason, nil); ferr != nil {
			s.log.Error("mark submission failed", zap.String("id", created.ID), zap.Error(ferr))
		}
		writeJSON(w, http.StatusServiceUnavailable, errResp{reason})
		return
	}
	writeJSON(w, http.StatusOK, submissionOut(created))
}

func (s *Server) listSubmissions(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subs, err := s.submissions.List(r.Context(), kind)
		if err != nil {
			s.log.Error("list submissions", zap.String("kind", kind), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errResp{err.Error()})
			return
		}
		out := make([]schemas.SubmissionOut, len(subs))
		for i, sub := range subs {
			sub.Kind = kind
			out[i] = submissionOut(sub)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) getSubmission(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := uuid.Parse(id); err != nil {
			writeJSON(w, http.StatusNotFound, errResp{"not found"})
			return
		}
		sub, err := s.submissions.Get(r.Context(), kind, id)
		if errors.Is(err, db.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errResp{"not found"})
			return
		}
		if err != nil {
			s.log.Error("get submission", zap.String("kind", kind), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errResp{err.Error()})
			return
		}
		sub.Kind = kind
		writeJSON(w, http.StatusOK, submissionOut(sub))
	}
}

func submissionOut(sub db.Submission) schemas.SubmissionOut {
	out := schemas.SubmissionOut{
		ID:          sub.ID,
		Kind:        sub.Kind,
		Title:       sub.Title,
		Author:      sub.Author,
		Campus:      sub.Campus,
		MemberCount: sub.MemberCount,
		Date:        sub.Date,
		Status:      sub.Status,
		Total:       sub.Total,
	}
	if sub.Kind == db.KindPlan {
		out.Plan = sub.Body
	} else {
		out.Content = sub.Body
		out.Reflection = sub.Reflection
	}
	if len(sub.Evaluation) > 0 {
		out.Evaluation = sub.Evaluation
	}
	if sub.Error != nil {
		out.Error = *sub.Error
	}
	return out
}
