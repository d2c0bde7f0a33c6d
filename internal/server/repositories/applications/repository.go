// Package applications persists candidate applications to jobs.
package applications

import (
	"context"

	"github.com/dmitrijs2005/hiringhub/internal/server/models"
)

type Repository interface {
	// Create records an application. It reports false when the candidate
	// had already applied.
	Create(ctx context.Context, accountID, jobID string) (bool, error)
	Delete(ctx context.Context, accountID, jobID string) error
	Exists(ctx context.Context, accountID, jobID string) (bool, error)
	CountByJob(ctx context.Context) (map[string]int, error)
	JobIDsByAccount(ctx context.Context, accountID string) (map[string]bool, error)
	ListApplicants(ctx context.Context, jobID string) ([]*models.Applicant, error)
	CountForOwner(ctx context.Context, ownerID string) (int, error)
}
