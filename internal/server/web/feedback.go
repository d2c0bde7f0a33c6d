package web

import (
	"net/http"

	"github.com/dmitrijs2005/hiringhub/internal/server/models"
	"github.com/go-chi/chi/v5"
)

type feedbackRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

func (s *Server) feedbackRoutes(r chi.Router) {
	r.With(RequireRole()).Get("/{jobID}/stats", s.feedbackStats)

	r.Group(func(r chi.Router) {
		r.Use(RequireRole(models.RoleCandidate))
		r.Get("/{jobID}", s.candidateJobFeedback)
		r.Post("/{jobID}", s.submitFeedback)
	})
}

func (s *Server) submitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := s.validator.Decode(r, &req); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	fb, err := s.feedback.Create(r.Context(), identity(r.Context()).Subject, chi.URLParam(r, "jobID"), req.Text)
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, feedbackView{
		ID:        fb.ID,
		AccountID: fb.AccountID,
		Text:      req.Text,
		Sentiment: fb.Sentiment,
		CreatedAt: fb.CreatedAt,
	})
}

type candidateFeedbackView struct {
	feedbackReportView
	Submitted bool `json:"submitted"`
}

// candidateJobFeedback lists every entry left on a job and whether the caller has
// left one.
func (s *Server) candidateJobFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobID")

	report, err := s.feedback.ListByJob(ctx, jobID)
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	submitted, err := s.feedback.Mine(ctx, identity(ctx).Subject, jobID)
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, candidateFeedbackView{feedbackReportView: newFeedbackReportView(report), Submitted: submitted})
}

func (s *Server) feedbackStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.feedback.Aggregate(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatsView(stats))
}
