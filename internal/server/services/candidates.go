package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/hiringhub/internal/common"
	"github.com/dmitrijs2005/hiringhub/internal/dbx"
	"github.com/dmitrijs2005/hiringhub/internal/logging"
	"github.com/dmitrijs2005/hiringhub/internal/server/inference"
	"github.com/dmitrijs2005/hiringhub/internal/server/models"
	"github.com/dmitrijs2005/hiringhub/internal/server/ranking"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/jobs"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/repomanager"
)

// SortBy orders job search results.
type SortBy string

const (
	SortSimilarity SortBy = "similarity"
	SortRecent     SortBy = "recent"
	SortApplicants SortBy = "applicants"
)

// SearchMode picks how the free-text query is matched.
type SearchMode string

const (
	// ModeText keeps jobs whose title or company contains the query and
	// ranks them against the resume.
	ModeText SearchMode = "text"
	// ModeSemantic ranks every job against the embedded query.
	ModeSemantic SearchMode = "semantic"
)

// minQuerySimilarity is the score at least one job must beat for a
// semantic search to count as matching anything.
const minQuerySimilarity = 0.01

var resumeExtensions = map[string]bool{".pdf": true, ".docx": true}

// SearchParams narrows and orders a job search.
type SearchParams struct {
	Query  string
	Status jobs.Status
	SortBy SortBy
	Mode   SearchMode
}

// JobMatch is a search hit scored for the candidate. FeedbackID is set
// when HasFeedback is.
type JobMatch struct {
	Job         *models.Job
	Similarity  float64
	Applicants  int
	Applied     bool
	Active      bool
	Feedback    models.FeedbackStats
	HasFeedback bool
	FeedbackID  string
}

type Dashboard struct {
	Account *models.Account
	Resume  *models.ResumeInfo
}

// ResumeUpload reports the outcome of UploadResume. ParseFailed is set when
// the document was stored but its contents could not be extracted.
type ResumeUpload struct {
	URL         string
	Resume      *models.ResumeInfo
	ParseFailed bool
}

// InterviewBrief is what a candidate needs to start a mock interview.
type InterviewBrief struct {
	Job         *models.Job
	Description string
}

// CandidateService is the candidate workspace: resume, search, applications
// and mock interviews.
type CandidateService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       BlobStore
	parser      ResumeParser
	embedder    Embedder
	searcher    JobSearcher
	logger      logging.Logger
	now         func() time.Time
}

func NewCandidateService(db *sql.DB, m repomanager.RepositoryManager, blobs BlobStore, parser ResumeParser,
	embedder Embedder, searcher JobSearcher, l logging.Logger) *CandidateService {
	return &CandidateService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		parser:      parser,
		embedder:    embedder,
		searcher:    searcher,
		logger:      l.With("module", "candidates"),
		now:         time.Now,
	}
}

func (s *CandidateService) Dashboard(ctx context.Context, accountID string) (*Dashboard, error) {
	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Account: account, Resume: account.Resume()}, nil
}

// UploadResume stores a PDF or DOCX resume and extracts its fields.
func (s *CandidateService) UploadResume(ctx context.Context, accountID, filename string, data []byte) (*ResumeUpload, error) {
	if len(data) == 0 {
		return nil, common.NewFieldError("resume", "Please select a resume file")
	}
	if !resumeExtensions[strings.ToLower(path.Ext(filename))] {
		return nil, common.NewFieldError("resume", "Only PDF or DOCX files are supported")
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	url, err := s.blobs.Upload(ctx, data, filename)
	if err != nil {
		return nil, err
	}

	result := &ResumeUpload{URL: url}
	raw, info, err := s.parser.ParseResume(ctx, filename, data)
	if err != nil {
		s.logger.Warn(ctx, "resume parsing failed", "account", accountID, "error", err)
		result.ParseFailed = true
		raw = nil
	} else {
		result.Resume = info
	}

	if err := repo.UpdateResume(ctx, accountID, url, raw); err != nil {
		s.discardBlob(ctx, url)
		return nil, fmt.Errorf("error saving resume: %w", err)
	}

	if account.ResumeURL != "" && account.ResumeURL != url {
		s.discardBlob(ctx, account.ResumeURL)
	}
	return result, nil
}

// DownloadResume returns the stored resume and its file name.
func (s *CandidateService) DownloadResume(ctx context.Context, accountID string) ([]byte, string, error) {
	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		return nil, "", err
	}
	if account.ResumeURL == "" {
		return nil, "", common.ErrorNotFound
	}

	data, err := s.blobs.Download(ctx, account.ResumeURL)
	if err != nil {
		return nil, "", err
	}
	return data, "resume" + path.Ext(account.ResumeURL), nil
}

// JobSearch lists jobs matching params. Jobs are scored against the
// candidate's resume, or against the query itself in semantic mode.
func (s *CandidateService) JobSearch(ctx context.Context, accountID string, p SearchParams) ([]JobMatch, error) {
	if p.SortBy == "" {
		p.SortBy = SortSimilarity
	}
	if p.Mode == "" {
		p.Mode = ModeText
	}
	switch p.SortBy {
	case SortSimilarity, SortRecent, SortApplicants:
	default:
		return nil, common.NewFieldError("sort_by", "Sort must be similarity, recent or applicants")
	}
	switch p.Status {
	case jobs.StatusAll, jobs.StatusActive, jobs.StatusClosed:
	default:
		return nil, common.NewFieldError("status", "Status must be active or closed")
	}
	switch p.Mode {
	case ModeText, ModeSemantic:
	default:
		return nil, common.NewFieldError("mode", "Mode must be text or semantic")
	}

	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	filter := jobs.Filter{Query: strings.TrimSpace(p.Query), Status: p.Status, Now: now}

	var target []float32
	semantic := false
	if p.Mode == ModeSemantic && filter.Query != "" {
		if target = s.embedder.Embed(ctx, filter.Query); target != nil {
			semantic = true
			filter.Query = ""
		} else {
			s.logger.Warn(ctx, "query embedding unavailable, matching text instead")
		}
	}
	if !semantic {
		target = s.embedder.Embed(ctx, ResumeText(account.Resume()))
	}

	list, err := s.repomanager.Jobs(s.db).Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error searching jobs: %w", err)
	}

	apps := s.repomanager.Applications(s.db)
	counts, err := apps.CountByJob(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting applicants: %w", err)
	}
	applied, err := apps.JobIDsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("error loading applications: %w", err)
	}
	sentiments, err := s.repomanager.Feedback(s.db).SentimentsByJob(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading feedback: %w", err)
	}

	ranked := ranking.RankJobs(target, list)
	if semantic && (len(ranked) == 0 || ranked[0].Similarity <= minQuerySimilarity) {
		ranked = ranking.RankJobs(nil, list)
	}

	out := make([]JobMatch, 0, len(ranked))
	for _, r := range ranked {
		m := JobMatch{
			Job:        r.Job,
			Similarity: r.Similarity,
			Applicants: counts[r.Job.ID],
			Applied:    applied[r.Job.ID],
			Active:     r.Job.IsActive(now),
			Feedback:   models.AggregateSentiment(sentiments[r.Job.ID]),
		}
		for _, f := range sentiments[r.Job.ID] {
			if f.AccountID == accountID {
				m.HasFeedback = true
				m.FeedbackID = f.ID
				break
			}
		}
		out = append(out, m)
	}

	switch p.SortBy {
	case SortRecent:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Job.OpenTime.After(out[j].Job.OpenTime) })
	case SortApplicants:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Applicants > out[j].Applicants })
	}
	return out, nil
}

// Apply records an application to an open job. Applying twice is a no-op;
// the result reports whether a new application was created.
func (s *CandidateService) Apply(ctx context.Context, accountID, jobID string) (bool, error) {
	job, err := s.repomanager.Jobs(s.db).GetByID(ctx, jobID)
	if err != nil {
		return false, err
	}
	if !job.IsActive(s.now()) {
		return false, common.NewValidationError("This job is no longer accepting applications.")
	}

	created, err := s.repomanager.Applications(s.db).Create(ctx, accountID, jobID)
	if err != nil {
		return false, fmt.Errorf("error applying: %w", err)
	}
	if created {
		s.logger.Info(ctx, "application created", "account", accountID, "job", jobID)
	}
	return created, nil
}

func (s *CandidateService) Withdraw(ctx context.Context, accountID, jobID string) error {
	return s.repomanager.Applications(s.db).Delete(ctx, accountID, jobID)
}

// MockInterview opens a mock interview for a job the candidate applied to.
func (s *CandidateService) MockInterview(ctx context.Context, accountID, jobID string) (*InterviewBrief, error) {
	job, err := s.repomanager.Jobs(s.db).GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := s.requireApplied(ctx, s.db, accountID, jobID); err != nil {
		return nil, err
	}

	data, err := s.blobs.Download(ctx, job.DescriptionURL)
	if err != nil {
		return nil, err
	}
	return &InterviewBrief{Job: job, Description: string(data)}, nil
}

// SaveInterviewResult stores the evaluation of a finished mock interview.
func (s *CandidateService) SaveInterviewResult(ctx context.Context, accountID, jobID string, score json.RawMessage) (*models.Interview, error) {
	if len(score) == 0 || !json.Valid(score) {
		return nil, common.NewFieldError("score", "Score must be a JSON document")
	}

	var saved *models.Interview
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.requireApplied(ctx, tx, accountID, jobID); err != nil {
			return err
		}
		var err error
		saved, err = s.repomanager.Interviews(tx).Create(ctx, &models.Interview{AccountID: accountID, JobID: jobID, Score: score})
		return err
	})
	if err != nil {
		var ve *common.ValidationError
		if errors.As(err, &ve) || errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error saving interview: %w", err)
	}
	return saved, nil
}

func (s *CandidateService) InterviewHistory(ctx context.Context, accountID string) ([]*models.InterviewRecord, error) {
	return s.repomanager.Interviews(s.db).ListByAccount(ctx, accountID)
}

// ThirdPartyJobs searches external job boards. Failures yield no results.
func (s *CandidateService) ThirdPartyJobs(ctx context.Context, prompt string) []inference.ExternalJob {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return []inference.ExternalJob{}
	}

	found, err := s.searcher.SearchJobs(ctx, prompt)
	if err != nil {
		s.logger.Warn(ctx, "external job search failed", "error", err)
		return []inference.ExternalJob{}
	}
	if found == nil {
		return []inference.ExternalJob{}
	}
	return found
}

func (s *CandidateService) requireApplied(ctx context.Context, db dbx.DBTX, accountID, jobID string) error {
	ok, err := s.repomanager.Applications(db).Exists(ctx, accountID, jobID)
	if err != nil {
		return fmt.Errorf("error loading application: %w", err)
	}
	if !ok {
		return common.NewValidationError("You must apply for this job before attempting a mock interview.")
	}
	return nil
}

func (s *CandidateService) discardBlob(ctx context.Context, url string) {
	if err := s.blobs.Delete(ctx, url); err != nil {
		s.logger.Warn(ctx, "orphaned blob", "url", url, "error", err)
	}
}

// ResumeText flattens the parts of a resume that describe what the
// candidate can do. It is empty for a nil resume.
func ResumeText(r *models.ResumeInfo) string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, 3+len(r.ProjectsBuilt))
	if len(r.Skills) > 0 {
		parts = append(parts, strings.Join(r.Skills, ", "))
	}
	if r.Experience != "" {
		parts = append(parts, r.Experience)
	}
	parts = append(parts, r.ProjectsBuilt...)
	parts = append(parts, r.Achievements...)
	return strings.Join(parts, "\n")
}
