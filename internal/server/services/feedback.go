package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/hiringhub/internal/common"
	"github.com/dmitrijs2005/hiringhub/internal/logging"
	"github.com/dmitrijs2005/hiringhub/internal/server/models"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/repomanager"
)

const missingText = "[No feedback submitted]"

// FeedbackView is a feedback entry with its text loaded from storage.
type FeedbackView struct {
	*models.Feedback
	Text string
}

// FeedbackReport is every entry for a job plus the aggregate.
type FeedbackReport struct {
	Entries []FeedbackView
	Stats   models.FeedbackStats
}

type FeedbackService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       BlobStore
	scorer      SentimentScorer
	logger      logging.Logger
}

func NewFeedbackService(db *sql.DB, m repomanager.RepositoryManager, blobs BlobStore, scorer SentimentScorer, l logging.Logger) *FeedbackService {
	return &FeedbackService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		scorer:      scorer,
		logger:      l.With("module", "feedback"),
	}
}

// Create stores a candidate's feedback on a job. A candidate may leave one
// entry per job. Sentiment is left empty when scoring fails.
func (s *FeedbackService) Create(ctx context.Context, accountID, jobID, text string) (*models.Feedback, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, common.NewFieldError("feedback_text", "Feedback text is required")
	}

	repo := s.repomanager.Feedback(s.db)

	if _, err := s.repomanager.Jobs(s.db).GetByID(ctx, jobID); err != nil {
		return nil, err
	}

	_, err := repo.GetByAccountAndJob(ctx, accountID, jobID)
	if err == nil {
		return nil, common.NewValidationError("You have already submitted feedback for this job.")
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error loading feedback: %w", err)
	}

	url, err := s.blobs.Upload(ctx, []byte(text), fmt.Sprintf("feedback_%s_%s.txt", accountID, jobID))
	if err != nil {
		return nil, err
	}

	f := &models.Feedback{AccountID: accountID, JobID: jobID, FeedbackURL: url}
	if score, err := s.scorer.Sentiment(ctx, text); err != nil {
		s.logger.Warn(ctx, "sentiment unavailable", "job", jobID, "error", err)
	} else {
		f.Sentiment = &score
	}

	created, err := repo.Create(ctx, f)
	if err != nil {
		s.discard(ctx, url)
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.NewValidationError("You have already submitted feedback for this job.")
		}
		return nil, fmt.Errorf("error creating feedback: %w", err)
	}
	return created, nil
}

// ListByJob returns the feedback for a job with texts and the aggregate.
func (s *FeedbackService) ListByJob(ctx context.Context, jobID string) (*FeedbackReport, error) {
	items, err := s.repomanager.Feedback(s.db).ListByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("error listing feedback: %w", err)
	}

	report := &FeedbackReport{
		Entries: make([]FeedbackView, 0, len(items)),
		Stats:   models.AggregateSentiment(items),
	}
	for _, f := range items {
		report.Entries = append(report.Entries, FeedbackView{Feedback: f, Text: s.text(ctx, f.FeedbackURL)})
	}
	return report, nil
}

// Aggregate returns the sentiment statistics for a job.
func (s *FeedbackService) Aggregate(ctx context.Context, jobID string) (models.FeedbackStats, error) {
	items, err := s.repomanager.Feedback(s.db).ListByJob(ctx, jobID)
	if err != nil {
		return models.FeedbackStats{}, fmt.Errorf("error listing feedback: %w", err)
	}
	return models.AggregateSentiment(items), nil
}

// Mine reports whether the candidate already left feedback on the job.
func (s *FeedbackService) Mine(ctx context.Context, accountID, jobID string) (bool, error) {
	_, err := s.repomanager.Feedback(s.db).GetByAccountAndJob(ctx, accountID, jobID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrorNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *FeedbackService) text(ctx context.Context, url string) string {
	if url == "" {
		return missingText
	}
	data, err := s.blobs.Download(ctx, url)
	if err != nil {
		s.logger.Warn(ctx, "feedback text unavailable", "url", url, "error", err)
		return missingText
	}
	return string(data)
}

func (s *FeedbackService) discard(ctx context.Context, url string) {
	if err := s.blobs.Delete(ctx, url); err != nil {
		s.logger.Warn(ctx, "orphaned blob", "url", url, "error", err)
	}
}
