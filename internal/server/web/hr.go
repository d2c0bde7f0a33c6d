package web

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/hiringhub/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type jobRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"required"`
	TechStacks  string    `json:"tech_stacks"`
	Skills      string    `json:"skills_required"`
	OpenTime    time.Time `json:"open_time"`
	CloseTime   time.Time `json:"close_time" validate:"required"`
	Company     string    `json:"company" validate:"max=200"`
	Location    string    `json:"location" validate:"max=200"`
	JobType     string    `json:"job_type" validate:"max=100"`
	SalaryRange string    `json:"salary_range" validate:"max=100"`
}

func (req jobRequest) input() services.JobInput {
	return services.JobInput{
		Title:       req.Title,
		Description: req.Description,
		TechStacks:  req.TechStacks,
		Skills:      req.Skills,
		OpenTime:    req.OpenTime,
		CloseTime:   req.CloseTime,
		Company:     req.Company,
		Location:    req.Location,
		JobType:     req.JobType,
		SalaryRange: req.SalaryRange,
	}
}

func (s *Server) hrRoutes(r chi.Router) {
	r.Get("/overview", s.overview)
	r.Get("/jobs", s.listJobs)
	r.Post("/jobs", s.createJob)
	r.Route("/jobs/{jobID}", func(r chi.Router) {
		r.Get("/", s.getJob)
		r.Put("/", s.editJob)
		r.Delete("/", s.deleteJob)
		r.Get("/applicants", s.applicants)
		r.Get("/applicants/export", s.exportApplicants)
		r.Get("/feedback", s.jobFeedback)
	})
}

func (s *Server) overview(w http.ResponseWriter, r *http.Request) {
	o, err := s.jobs.Overview(r.Context(), identity(r.Context()).Subject)
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"active_jobs": o.ActiveJobs,
		"applicants":  o.Applicants,
		"interviews":  o.Interviews,
	})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	list, err := s.jobs.ListJobs(r.Context(), identity(r.Context()).Subject)
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	out := make([]jobView, 0, len(list))
	for _, v := range list {
		out = append(out, newOwnedJobView(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := s.validator.Decode(r, &req); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	job, err := s.jobs.CreateJob(r.Context(), identity(r.Context()).Subject, req.input())
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	out := newJobView(job)
	out.Description = req.Description
	out.Active = job.IsActive(time.Now())
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	v, err := s.jobs.GetJob(r.Context(), identity(r.Context()).Subject, chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOwnedJobView(*v))
}

func (s *Server) editJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := s.validator.Decode(r, &req); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	job, err := s.jobs.EditJob(r.Context(), identity(r.Context()).Subject, chi.URLParam(r, "jobID"), req.input())
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	out := newJobView(job)
	out.Description = req.Description
	out.Active = job.IsActive(time.Now())
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.DeleteJob(r.Context(), identity(r.Context()).Subject, chi.URLParam(r, "jobID")); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) applicants(w http.ResponseWriter, r *http.Request) {
	list, err := s.jobs.Applicants(r.Context(), identity(r.Context()).Subject, chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	out := make([]applicantView, 0, len(list))
	for _, a := range list {
		out = append(out, newApplicantView(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) exportApplicants(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.jobs.ExportApplicants(r.Context(), identity(r.Context()).Subject, chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeAttachment(w, data, name, xlsxContentType)
}

func (s *Server) jobFeedback(w http.ResponseWriter, r *http.Request) {
	report, err := s.jobs.JobFeedback(r.Context(), identity(r.Context()).Subject, chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, newFeedbackReportView(report))
}
