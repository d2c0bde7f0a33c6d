// Package feedback persists candidate feedback on jobs.
package feedback

import (
	"context"

	"github.com/dmitrijs2005/hiringhub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, f *models.Feedback) (*models.Feedback, error)
	ListByJob(ctx context.Context, jobID string) ([]*models.Feedback, error)
	GetByAccountAndJob(ctx context.Context, accountID, jobID string) (*models.Feedback, error)
	// SentimentsByJob groups every feedback entry by job id.
	SentimentsByJob(ctx context.Context) (map[string][]*models.Feedback, error)
}
