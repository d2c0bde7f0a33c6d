package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/hiringhub/internal/common"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/jobs"
	"github.com/dmitrijs2005/hiringhub/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const maxResumeSize = 10 << 20

type interviewResultRequest struct {
	Score json.RawMessage `json:"score" validate:"required"`
}

type externalSearchRequest struct {
	Prompt string `json:"prompt" validate:"required,max=500"`
}

func (s *Server) candidateRoutes(r chi.Router) {
	r.Get("/dashboard", s.dashboard)
	r.Post("/resume", s.uploadResume)
	r.Get("/resume", s.downloadResume)
	r.Get("/jobs", s.searchJobs)
	r.Post("/jobs/{jobID}/apply", s.apply)
	r.Delete("/jobs/{jobID}/apply", s.withdraw)
	r.Get("/jobs/{jobID}/interview", s.mockInterview)
	r.Post("/jobs/{jobID}/interview", s.saveInterview)
	r.Get("/interviews", s.interviewHistory)
	r.Post("/external-jobs", s.externalJobs)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.candidates.Dashboard(r.Context(), identity(r.Context()).Subject)
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountView(d.Account))
}

func (s *Server) uploadResume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxResumeSize+1<<10)

	file, header, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(ctx, s.logger, w, common.NewFieldError("file", "Resume must be at most 10 MB"))
			return
		}
		writeError(ctx, s.logger, w, common.NewFieldError("file", "Please select a resume file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(ctx, s.logger, w, common.NewFieldError("file", "Could not read the uploaded file"))
		return
	}

	res, err := s.candidates.UploadResume(ctx, identity(ctx).Subject, header.Filename, data)
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}

	msg := "Resume uploaded and parsed successfully."
	if res.ParseFailed {
		msg = "Resume uploaded, but its contents could not be extracted."
	}
	writeJSON(w, http.StatusOK, struct {
		Message     string `json:"message"`
		URL         string `json:"resume_url"`
		ParseFailed bool   `json:"parse_failed"`
		Resume      any    `json:"resume,omitempty"`
	}{Message: msg, URL: res.URL, ParseFailed: res.ParseFailed, Resume: res.Resume})
}

func (s *Server) downloadResume(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.candidates.DownloadResume(r.Context(), identity(r.Context()).Subject)
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeAttachment(w, data, name, "application/octet-stream")
}

func (s *Server) searchJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	matches, err := s.candidates.JobSearch(r.Context(), identity(r.Context()).Subject, services.SearchParams{
		Query:  q.Get("q"),
		Status: jobs.Status(q.Get("status")),
		SortBy: services.SortBy(q.Get("sort")),
		Mode:   services.SearchMode(q.Get("mode")),
	})
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	out := make([]matchView, 0, len(matches))
	for _, m := range matches {
		out = append(out, newMatchView(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) apply(w http.ResponseWriter, r *http.Request) {
	created, err := s.candidates.Apply(r.Context(), identity(r.Context()).Subject, chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]bool{"created": created})
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	if err := s.candidates.Withdraw(r.Context(), identity(r.Context()).Subject, chi.URLParam(r, "jobID")); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) mockInterview(w http.ResponseWriter, r *http.Request) {
	brief, err := s.candidates.MockInterview(r.Context(), identity(r.Context()).Subject, chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	jv := newJobView(brief.Job)
	jv.Description = brief.Description
	writeJSON(w, http.StatusOK, jv)
}

func (s *Server) saveInterview(w http.ResponseWriter, r *http.Request) {
	var req interviewResultRequest
	if err := s.validator.Decode(r, &req); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	saved, err := s.candidates.SaveInterviewResult(r.Context(), identity(r.Context()).Subject, chi.URLParam(r, "jobID"), req.Score)
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, interviewView{ID: saved.ID, JobID: saved.JobID, Score: saved.Score, CreatedAt: saved.CreatedAt})
}

func (s *Server) interviewHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.candidates.InterviewHistory(r.Context(), identity(r.Context()).Subject)
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	out := make([]interviewView, 0, len(records))
	for _, rec := range records {
		out = append(out, interviewView{
			ID:        rec.ID,
			JobID:     rec.JobID,
			JobTitle:  rec.JobTitle,
			Company:   rec.Company,
			Score:     rec.Score,
			CreatedAt: rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) externalJobs(w http.ResponseWriter, r *http.Request) {
	var req externalSearchRequest
	if err := s.validator.Decode(r, &req); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": s.candidates.ThirdPartyJobs(r.Context(), req.Prompt)})
}

func writeAttachment(w http.ResponseWriter, data []byte, filename, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
