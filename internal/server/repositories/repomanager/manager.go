package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/hiringhub/internal/dbx"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/applications"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/feedback"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/interviews"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/jobs"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// path works against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Jobs(db dbx.DBTX) jobs.Repository
	Applications(db dbx.DBTX) applications.Repository
	Feedback(db dbx.DBTX) feedback.Repository
	Interviews(db dbx.DBTX) interviews.Repository
}
