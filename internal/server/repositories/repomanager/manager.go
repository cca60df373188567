package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/alarmlock/internal/dbx"
	"github.com/dmitrijs2005/alarmlock/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/alarmlock/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/alarmlock/internal/server/repositories/events"
	"github.com/dmitrijs2005/alarmlock/internal/server/repositories/vaults"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Vaults(db dbx.DBTX) vaults.Repository
	Accounts(db dbx.DBTX) accounts.Repository
	Events(db dbx.DBTX) events.Repository
	Challenges(db dbx.DBTX) challenges.Repository
}
