package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/hiringhub/internal/common"
	"github.com/dmitrijs2005/hiringhub/internal/logging"
	"github.com/dmitrijs2005/hiringhub/internal/server/export"
	"github.com/dmitrijs2005/hiringhub/internal/server/models"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/repomanager"
	"github.com/pgvector/pgvector-go"
)

// JobInput is what an HR user submits to create or edit a posting.
// Skills is a comma separated list.
type JobInput struct {
	Title       string
	Description string
	TechStacks  string
	Skills      string
	OpenTime    time.Time
	CloseTime   time.Time
	Company     string
	Location    string
	JobType     string
	SalaryRange string
}

// JobView is an owned job with its description text.
type JobView struct {
	*models.Job
	Description string
	Active      bool
	Applicants  int
}

// Overview is the HR dashboard summary.
type Overview struct {
	ActiveJobs int
	Applicants int
	Interviews int
}

// ApplicantView is an applicant with the feedback they left on the job.
type ApplicantView struct {
	*models.Applicant
	Feedback string
}

// JobService manages postings on behalf of their HR owners.
type JobService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       BlobStore
	embedder    Embedder
	feedback    *FeedbackService
	logger      logging.Logger
	now         func() time.Time
}

func NewJobService(db *sql.DB, m repomanager.RepositoryManager, blobs BlobStore, embedder Embedder,
	feedback *FeedbackService, l logging.Logger) *JobService {
	return &JobService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		embedder:    embedder,
		feedback:    feedback,
		logger:      l.With("module", "jobs"),
		now:         time.Now,
	}
}

func (s *JobService) CreateJob(ctx context.Context, ownerID string, in JobInput) (*models.Job, error) {
	if err := validateJob(in); err != nil {
		return nil, err
	}

	url, err := s.blobs.Upload(ctx, []byte(in.Description), "description.txt")
	if err != nil {
		return nil, err
	}

	job := s.buildJob(ctx, in, url)
	job.PostedBy = ownerID

	created, err := s.repomanager.Jobs(s.db).Create(ctx, job)
	if err != nil {
		s.discard(ctx, url)
		return nil, fmt.Errorf("error creating job: %w", err)
	}

	s.logger.Info(ctx, "job created", "job", created.ID, "owner", ownerID, "embedded", created.Embedding != nil)
	return created, nil
}

func (s *JobService) EditJob(ctx context.Context, ownerID, jobID string, in JobInput) (*models.Job, error) {
	if err := validateJob(in); err != nil {
		return nil, err
	}

	existing, err := s.owned(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}

	url, err := s.blobs.Upload(ctx, []byte(in.Description), "description.txt")
	if err != nil {
		return nil, err
	}

	job := s.buildJob(ctx, in, url)
	job.ID = existing.ID
	job.PostedBy = existing.PostedBy
	job.CreatedAt = existing.CreatedAt

	if err := s.repomanager.Jobs(s.db).Update(ctx, job); err != nil {
		s.discard(ctx, url)
		return nil, fmt.Errorf("error updating job: %w", err)
	}

	s.discard(ctx, existing.DescriptionURL)
	return job, nil
}

// DeleteJob removes an owned job together with its applications,
// feedback and interviews.
func (s *JobService) DeleteJob(ctx context.Context, ownerID, jobID string) error {
	job, err := s.owned(ctx, ownerID, jobID)
	if err != nil {
		return err
	}

	if err := s.repomanager.Jobs(s.db).Delete(ctx, job.ID, ownerID); err != nil {
		return fmt.Errorf("error deleting job: %w", err)
	}

	s.discard(ctx, job.DescriptionURL)
	s.logger.Info(ctx, "job deleted", "job", job.ID, "owner", ownerID)
	return nil
}

// ListJobs returns the owner's jobs, newest first.
func (s *JobService) ListJobs(ctx context.Context, ownerID string) ([]JobView, error) {
	list, err := s.repomanager.Jobs(s.db).ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error listing jobs: %w", err)
	}

	counts, err := s.repomanager.Applications(s.db).CountByJob(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting applicants: %w", err)
	}

	now := s.now()
	views := make([]JobView, 0, len(list))
	for _, j := range list {
		views = append(views, JobView{
			Job:         j,
			Description: s.description(ctx, j),
			Active:      j.IsActive(now),
			Applicants:  counts[j.ID],
		})
	}
	return views, nil
}

// GetJob returns one owned job with its description.
func (s *JobService) GetJob(ctx context.Context, ownerID, jobID string) (*JobView, error) {
	job, err := s.owned(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	return &JobView{Job: job, Description: s.description(ctx, job), Active: job.IsActive(s.now())}, nil
}

func (s *JobService) Overview(ctx context.Context, ownerID string) (*Overview, error) {
	active, err := s.repomanager.Jobs(s.db).CountActiveByOwner(ctx, ownerID, s.now())
	if err != nil {
		return nil, fmt.Errorf("error counting jobs: %w", err)
	}
	applicants, err := s.repomanager.Applications(s.db).CountForOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error counting applicants: %w", err)
	}
	interviews, err := s.repomanager.Interviews(s.db).CountForOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error counting interviews: %w", err)
	}
	return &Overview{ActiveJobs: active, Applicants: applicants, Interviews: interviews}, nil
}

// Applicants lists the candidates who applied to an owned job.
func (s *JobService) Applicants(ctx context.Context, ownerID, jobID string) ([]ApplicantView, error) {
	if _, err := s.owned(ctx, ownerID, jobID); err != nil {
		return nil, err
	}

	list, err := s.repomanager.Applications(s.db).ListApplicants(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("error listing applicants: %w", err)
	}

	report, err := s.feedback.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	texts := make(map[string]string, len(report.Entries))
	for _, e := range report.Entries {
		texts[e.AccountID] = e.Text
	}

	views := make([]ApplicantView, 0, len(list))
	for _, a := range list {
		views = append(views, ApplicantView{Applicant: a, Feedback: texts[a.AccountID]})
	}
	return views, nil
}

// ExportApplicants renders the applicants of an owned job as an .xlsx
// workbook and returns it with a suggested file name.
func (s *JobService) ExportApplicants(ctx context.Context, ownerID, jobID string) ([]byte, string, error) {
	job, err := s.owned(ctx, ownerID, jobID)
	if err != nil {
		return nil, "", err
	}

	applicants, err := s.Applicants(ctx, ownerID, jobID)
	if err != nil {
		return nil, "", err
	}

	rows := make([]export.ApplicantRow, 0, len(applicants))
	for _, a := range applicants {
		rows = append(rows, export.ApplicantRow{
			Username:  a.Username,
			Email:     a.Email,
			ResumeURL: a.ResumeURL,
			AppliedAt: a.AppliedAt,
			Score:     string(a.Score),
			Feedback:  a.Feedback,
		})
	}

	data, err := export.Applicants(export.JobSummary{Title: job.Title, Company: job.Company, Closes: job.CloseTime}, rows, s.now())
	if err != nil {
		return nil, "", fmt.Errorf("error exporting applicants: %w", err)
	}
	return data, fmt.Sprintf("applicants-%s.xlsx", job.ID), nil
}

// JobFeedback returns the feedback left on an owned job.
func (s *JobService) JobFeedback(ctx context.Context, ownerID, jobID string) (*FeedbackReport, error) {
	if _, err := s.owned(ctx, ownerID, jobID); err != nil {
		return nil, err
	}
	return s.feedback.ListByJob(ctx, jobID)
}

func (s *JobService) owned(ctx context.Context, ownerID, jobID string) (*models.Job, error) {
	job, err := s.repomanager.Jobs(s.db).GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error loading job: %w", err)
	}
	if job.PostedBy != ownerID {
		return nil, common.ErrorForbidden
	}
	return job, nil
}

func (s *JobService) buildJob(ctx context.Context, in JobInput, descriptionURL string) *models.Job {
	job := &models.Job{
		Title:          strings.TrimSpace(in.Title),
		DescriptionURL: descriptionURL,
		TechStacks:     strings.TrimSpace(in.TechStacks),
		SkillsRequired: SplitSkills(in.Skills),
		OpenTime:       in.OpenTime,
		CloseTime:      in.CloseTime,
		Company:        strings.TrimSpace(in.Company),
		Location:       strings.TrimSpace(in.Location),
		JobType:        strings.TrimSpace(in.JobType),
		SalaryRange:    strings.TrimSpace(in.SalaryRange),
	}
	job.ApplyDefaults()

	if v := s.embedder.Embed(ctx, job.Title+"\n"+in.Description); v != nil {
		vec := pgvector.NewVector(v)
		job.Embedding = &vec
	}
	return job
}

func (s *JobService) description(ctx context.Context, j *models.Job) string {
	data, err := s.blobs.Download(ctx, j.DescriptionURL)
	if err != nil {
		s.logger.Warn(ctx, "description unavailable", "job", j.ID, "error", err)
		return ""
	}
	return string(data)
}

func (s *JobService) discard(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.blobs.Delete(ctx, url); err != nil {
		s.logger.Warn(ctx, "orphaned blob", "url", url, "error", err)
	}
}

// SplitSkills splits a comma separated list, dropping blanks.
func SplitSkills(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validateJob(in JobInput) error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "Title is required"
	}
	if strings.TrimSpace(in.Description) == "" {
		fields["description"] = "Description is required"
	}
	if !in.CloseTime.After(in.OpenTime) {
		fields["close_time"] = "Close time must be after open time"
	}
	if len(fields) > 0 {
		return &common.ValidationError{Fields: fields}
	}
	return nil
}
