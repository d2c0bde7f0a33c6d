package interviews

import (
	"context"
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

func (r *PostgresRepository) Create(ctx context.Context, in *models.Interview) (*models.Interview, error) {
	query :=
		`INSERT INTO interviews (account_id, job_id, score)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, in.AccountID, in.JobID, string(in.Score)).Scan(&in.ID, &in.CreatedAt)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return in, nil
}

func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.InterviewRecord, error) {
	query :=
		`SELECT i.id, i.account_id, i.job_id, i.score, i.created_at, j.title, j.company
		 FROM interviews i
		 JOIN jobs j ON j.id = i.job_id
		 WHERE i.account_id = $1
		 ORDER BY i.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.InterviewRecord
	for rows.Next() {
		rec := &models.InterviewRecord{}
		var score []byte
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.JobID, &score, &rec.CreatedAt, &rec.JobTitle, &rec.Company); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		rec.Score = score
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) CountForOwner(ctx context.Context, ownerID string) (int, error) {
	query :=
		`SELECT count(*) FROM interviews i
		 JOIN jobs j ON j.id = i.job_id
		 WHERE j.posted_by = $1`

	var n int
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
