// Package accounts persists user accounts.
package accounts

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/hiringhub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateProfile(ctx context.Context, id, username, email, passwordHash string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateResume(ctx context.Context, id, resumeURL string, extracted json.RawMessage) error
}
