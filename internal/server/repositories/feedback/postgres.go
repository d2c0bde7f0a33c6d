package feedback

import (
	"context"
	"database/sql"
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

const selectFeedback = `SELECT id, account_id, job_id, feedback_url, sentiment, created_at FROM feedback`

func (r *PostgresRepository) Create(ctx context.Context, f *models.Feedback) (*models.Feedback, error) {
	query :=
		`INSERT INTO feedback (account_id, job_id, feedback_url, sentiment)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`

	var sentiment any
	if f.Sentiment != nil {
		sentiment = int64(*f.Sentiment)
	}

	err := r.db.QueryRowContext(ctx, query, f.AccountID, f.JobID, f.FeedbackURL, sentiment).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		if dbx.IsForeignKeyViolation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) ListByJob(ctx context.Context, jobID string) ([]*models.Feedback, error) {
	return r.list(ctx, selectFeedback+` WHERE job_id = $1 ORDER BY created_at`, jobID)
}

func (r *PostgresRepository) GetByAccountAndJob(ctx context.Context, accountID, jobID string) (*models.Feedback, error) {
	row := r.db.QueryRowContext(ctx, selectFeedback+` WHERE account_id = $1 AND job_id = $2`, accountID, jobID)

	f, err := scanFeedback(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) SentimentsByJob(ctx context.Context) (map[string][]*models.Feedback, error) {
	items, err := r.list(ctx, selectFeedback)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]*models.Feedback)
	for _, f := range items {
		grouped[f.JobID] = append(grouped[f.JobID], f)
	}
	return grouped, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Feedback, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFeedback(s scanner) (*models.Feedback, error) {
	f := &models.Feedback{}
	var sentiment sql.NullInt64

	if err := s.Scan(&f.ID, &f.AccountID, &f.JobID, &f.FeedbackURL, &sentiment, &f.CreatedAt); err != nil {
		return nil, err
	}
	if sentiment.Valid {
		v := int(sentiment.Int64)
		f.Sentiment = &v
	}
	return f, nil
}
