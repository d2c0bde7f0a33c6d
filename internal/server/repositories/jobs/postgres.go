package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

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

const selectJob = `SELECT id, title, description_url, tech_stacks, skills_required, open_time, close_time,
	company, location, job_type, salary_range, posted_by, embedding, created_at FROM jobs`

func (r *PostgresRepository) Create(ctx context.Context, job *models.Job) (*models.Job, error) {
	skills, err := json.Marshal(nonNil(job.SkillsRequired))
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO jobs (title, description_url, tech_stacks, skills_required, open_time, close_time,
		   company, location, job_type, salary_range, posted_by, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query,
		job.Title, job.DescriptionURL, job.TechStacks, string(skills), job.OpenTime, job.CloseTime,
		job.Company, job.Location, job.JobType, job.SalaryRange, job.PostedBy, job.Embedding,
	).Scan(&job.ID, &job.CreatedAt)

	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return job, nil
}

// Update rewrites an owned job. A job owned by someone else is NotFound.
func (r *PostgresRepository) Update(ctx context.Context, job *models.Job) error {
	skills, err := json.Marshal(nonNil(job.SkillsRequired))
	if err != nil {
		return err
	}

	query :=
		`UPDATE jobs SET title = $3, description_url = $4, tech_stacks = $5, skills_required = $6,
		   open_time = $7, close_time = $8, company = $9, location = $10, job_type = $11,
		   salary_range = $12, embedding = $13
		 WHERE id = $1 AND posted_by = $2`

	res, err := r.db.ExecContext(ctx, query,
		job.ID, job.PostedBy, job.Title, job.DescriptionURL, job.TechStacks, string(skills),
		job.OpenTime, job.CloseTime, job.Company, job.Location, job.JobType, job.SalaryRange, job.Embedding)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOne(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM jobs WHERE id = $1 AND posted_by = $2`

	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOne(res)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	row := r.db.QueryRowContext(ctx, selectJob+` WHERE id = $1`, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return job, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Job, error) {
	return r.list(ctx, selectJob+` WHERE posted_by = $1 ORDER BY created_at DESC`, ownerID)
}

// Search returns jobs matching f, newest first.
func (r *PostgresRepository) Search(ctx context.Context, f Filter) ([]*models.Job, error) {
	var conds []string
	var args []any

	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR company ILIKE $%d)", n, n))
	}

	switch f.Status {
	case StatusActive:
		args = append(args, f.Now)
		conds = append(conds, fmt.Sprintf("close_time > $%d", len(args)))
	case StatusClosed:
		args = append(args, f.Now)
		conds = append(conds, fmt.Sprintf("close_time <= $%d", len(args)))
	}

	query := selectJob
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	return r.list(ctx, query, args...)
}

func (r *PostgresRepository) CountActiveByOwner(ctx context.Context, ownerID string, now time.Time) (int, error) {
	query := `SELECT count(*) FROM jobs WHERE posted_by = $1 AND close_time > $2`

	var n int
	if err := r.db.QueryRowContext(ctx, query, ownerID, now).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Job, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*models.Job, error) {
	j := &models.Job{}
	var skills []byte

	err := s.Scan(&j.ID, &j.Title, &j.DescriptionURL, &j.TechStacks, &skills, &j.OpenTime, &j.CloseTime,
		&j.Company, &j.Location, &j.JobType, &j.SalaryRange, &j.PostedBy, &j.Embedding, &j.CreatedAt)
	if err != nil {
		return nil, err
	}

	if len(skills) > 0 {
		if err := json.Unmarshal(skills, &j.SkillsRequired); err != nil {
			return nil, err
		}
	}

	return j, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
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
