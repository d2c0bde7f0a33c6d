package accounts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/hiringhub/internal/common"
	"github.com/dmitrijs2005/hiringhub/internal/dbx"
	"github.com/dmitrijs2005/hiringhub/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectAccount = `SELECT id, username, email, password_hash, role, resume_url, extracted_info, created_at FROM accounts`

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (username, email, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		account.Username, account.Email, account.PasswordHash, string(account.Role)).Scan(&account.ID, &account.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE lower(email) = lower($1)`, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	a := &models.Account{}
	var role string
	var extracted []byte

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Username, &a.Email, &a.PasswordHash, &role, &a.ResumeURL, &extracted, &a.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	a.Role = models.Role(role)
	if len(extracted) > 0 {
		a.ExtractedInfo = json.RawMessage(extracted)
	}

	return a, nil
}

// UpdateProfile changes the display name and email. An empty passwordHash
// keeps the current password.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id, username, email, passwordHash string) error {
	query :=
		`UPDATE accounts
		 SET username = $2, email = $3, password_hash = COALESCE(NULLIF($4, ''), password_hash)
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, username, email, passwordHash)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return requireOne(res)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE accounts SET password_hash = $2 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOne(res)
}

func (r *PostgresRepository) UpdateResume(ctx context.Context, id, resumeURL string, extracted json.RawMessage) error {
	query := `UPDATE accounts SET resume_url = $2, extracted_info = $3 WHERE id = $1`

	var info any
	if len(extracted) > 0 {
		info = string(extracted)
	}

	res, err := r.db.ExecContext(ctx, query, id, resumeURL, info)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOne(res)
}

func requireOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
