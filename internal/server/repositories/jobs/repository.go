// Package jobs persists job postings and their embeddings.
package jobs

import (
	"context"
	"time"

	"github.com/dmitrijs2005/hiringhub/internal/server/models"
)

// Status narrows a search to open or closed postings.
type Status string

const (
	StatusAll    Status = ""
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// Filter selects jobs for candidate search. Query matches title or company,
// case-insensitively. Now is the reference instant for Status.
type Filter struct {
	Query  string
	Status Status
	Now    time.Time
}

type Repository interface {
	Create(ctx context.Context, job *models.Job) (*models.Job, error)
	Update(ctx context.Context, job *models.Job) error
	Delete(ctx context.Context, id, ownerID string) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Job, error)
	Search(ctx context.Context, f Filter) ([]*models.Job, error)
	CountActiveByOwner(ctx context.Context, ownerID string, now time.Time) (int, error)
}
