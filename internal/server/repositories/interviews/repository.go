// Package interviews persists mock interview results.
package interviews

import (
	"context"

	"github.com/dmitrijs2005/hiringhub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, in *models.Interview) (*models.Interview, error)
	ListByAccount(ctx context.Context, accountID string) ([]*models.InterviewRecord, error)
	CountForOwner(ctx context.Context, ownerID string) (int, error)
}
