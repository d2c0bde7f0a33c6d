package interviews

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/hiringhub/internal/common"
	"github.com/dmitrijs2005/hiringhub/internal/server/models"
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

const insertQ = `(?s)^INSERT\s+INTO\s+interviews\s*\(account_id,\s*job_id,\s*score\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*RETURNING\s+id,\s*created_at$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(insertQ).WithArgs("c-1", "j-1", `{"total_score":70}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("i-1", now))

	got, err := repo.Create(context.Background(), &models.Interview{AccountID: "c-1", JobID: "j-1", Score: json.RawMessage(`{"total_score":70}`)})
	require.NoError(t, err)
	assert.Equal(t, "i-1", got.ID)
	assert.Equal(t, now, got.CreatedAt)
}

func TestCreate_Errors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Interview{Score: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.Create(context.Background(), &models.Interview{Score: json.RawMessage(`{}`)})
	assert.ErrorContains(t, err, "db error: db down")
}

func TestListByAccount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+i\.id,.*FROM\s+interviews\s+i\s+JOIN\s+jobs\s+j.*WHERE\s+i\.account_id\s*=\s*\$1\s+ORDER\s+BY\s+i\.created_at\s+DESC$`).
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "job_id", "score", "created_at", "title", "company"}).
			AddRow("i-2", "c-1", "j-1", []byte(`{"total_score":90}`), now, "Go dev", "Acme").
			AddRow("i-1", "c-1", "j-1", []byte(`{"total_score":60}`), now.Add(-time.Hour), "Go dev", "Acme"))

	got, err := repo.ListByAccount(context.Background(), "c-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Go dev", got[0].JobTitle)
	assert.JSONEq(t, `{"total_score":90}`, string(got[0].Score))
}

func TestCountForOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+count\(\*\)\s+FROM\s+interviews\s+i\s+JOIN\s+jobs\s+j.*WHERE\s+j\.posted_by\s*=\s*\$1$`).
		WithArgs("hr-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountForOwner(context.Background(), "hr-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
