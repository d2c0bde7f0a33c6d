package applications

import (
	"context"
	"encoding/json"
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

func (r *PostgresRepository) Create(ctx context.Context, accountID, jobID string) (bool, error) {
	query :=
		`INSERT INTO applications (account_id, job_id)
		 VALUES ($1, $2)
		 ON CONFLICT (account_id, job_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, accountID, jobID)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return false, common.ErrorNotFound
		}
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, accountID, jobID string) error {
	query := `DELETE FROM applications WHERE account_id = $1 AND job_id = $2`

	res, err := r.db.ExecContext(ctx, query, accountID, jobID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Exists(ctx context.Context, accountID, jobID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM applications WHERE account_id = $1 AND job_id = $2)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, accountID, jobID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) CountByJob(ctx context.Context) (map[string]int, error) {
	query := `SELECT job_id, count(*) FROM applications GROUP BY job_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var jobID string
		var n int
		if err := rows.Scan(&jobID, &n); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		counts[jobID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return counts, nil
}

func (r *PostgresRepository) JobIDsByAccount(ctx context.Context, accountID string) (map[string]bool, error) {
	query := `SELECT job_id FROM applications WHERE account_id = $1`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var jobID string
		if err := rows.Scan(&jobID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids[jobID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ids, nil
}

func (r *PostgresRepository) ListApplicants(ctx context.Context, jobID string) ([]*models.Applicant, error) {
	query :=
		`SELECT a.id, a.username, a.email, a.resume_url, ap.score, ap.applied_at
		 FROM applications ap
		 JOIN accounts a ON a.id = ap.account_id
		 WHERE ap.job_id = $1
		 ORDER BY ap.applied_at`

	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Applicant
	for rows.Next() {
		a := &models.Applicant{}
		var score []byte
		if err := rows.Scan(&a.AccountID, &a.Username, &a.Email, &a.ResumeURL, &score, &a.AppliedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if len(score) > 0 {
			a.Score = json.RawMessage(score)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) CountForOwner(ctx context.Context, ownerID string) (int, error) {
	query :=
		`SELECT count(*) FROM applications ap
		 JOIN jobs j ON j.id = ap.job_id
		 WHERE j.posted_by = $1`

	var n int
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
