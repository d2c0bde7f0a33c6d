package applications

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/hiringhub/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const insertQ = `(?s)^INSERT\s+INTO\s+applications\s*\(account_id,\s*job_id\)\s*VALUES\s*\(\$1,\s*\$2\)\s*ON\s+CONFLICT\s*\(account_id,\s*job_id\)\s*DO\s+NOTHING$`

func TestCreate_IsIdempotent(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).WithArgs("c-1", "j-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertQ).WithArgs("c-1", "j-1").WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.Create(context.Background(), "c-1", "j-1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(context.Background(), "c-1", "j-1")
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UnknownJob(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err := repo.Create(context.Background(), "c-1", "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^DELETE\s+FROM\s+applications\s+WHERE\s+account_id\s*=\s*\$1\s+AND\s+job_id\s*=\s*\$2$`
	mock.ExpectExec(q).WithArgs("c-1", "j-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("c-1", "j-2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q).WithArgs("c-1", "j-3").WillReturnError(errors.New("db down"))

	require.NoError(t, repo.Delete(context.Background(), "c-1", "j-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "c-1", "j-2"), common.ErrorNotFound)
	assert.ErrorContains(t, repo.Delete(context.Background(), "c-1", "j-3"), "db error: db down")
}

func TestExists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+applications\s+WHERE\s+account_id\s*=\s*\$1\s+AND\s+job_id\s*=\s*\$2\)$`).
		WithArgs("c-1", "j-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), "c-1", "j-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCountByJob(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+job_id,\s*count\(\*\)\s+FROM\s+applications\s+GROUP\s+BY\s+job_id$`).
		WillReturnRows(sqlmock.NewRows([]string{"job_id", "count"}).AddRow("j-1", 3).AddRow("j-2", 1))

	got, err := repo.CountByJob(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"j-1": 3, "j-2": 1}, got)
}

func TestJobIDsByAccount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+job_id\s+FROM\s+applications\s+WHERE\s+account_id\s*=\s*\$1$`).
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows([]string{"job_id"}).AddRow("j-1").AddRow("j-4"))

	got, err := repo.JobIDsByAccount(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"j-1": true, "j-4": true}, got)
}

func TestListApplicants(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+a\.id,.*FROM\s+applications\s+ap\s+JOIN\s+accounts\s+a.*WHERE\s+ap\.job_id\s*=\s*\$1\s+ORDER\s+BY\s+ap\.applied_at$`).
		WithArgs("j-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "resume_url", "score", "applied_at"}).
			AddRow("c-1", "ann", "ann@example.com", "http://s3/r.pdf", []byte(`{"total_score":80}`), now).
			AddRow("c-2", "bob", "bob@example.com", "", nil, now))

	got, err := repo.ListApplicants(context.Background(), "j-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.JSONEq(t, `{"total_score":80}`, string(got[0].Score))
	assert.Nil(t, got[1].Score)
}

func TestCountForOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+count\(\*\)\s+FROM\s+applications\s+ap\s+JOIN\s+jobs\s+j.*WHERE\s+j\.posted_by\s*=\s*\$1$`).
		WithArgs("hr-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.CountForOwner(context.Background(), "hr-1")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}
