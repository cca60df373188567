package client

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/alarmlock/internal/client/migrations"
	"github.com/dmitrijs2005/alarmlock/internal/client/repositories/receipts"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Repositories are the local stores backing the CLI.
type Repositories struct {
	Receipts receipts.Repository
	db       *sql.DB
}

func (r *Repositories) Close() error {
	return r.db.Close()
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	// Keep migration chatter out of command output.
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the sqlite journal at path, creating its directory
// and schema when missing.
func InitDatabase(ctx context.Context, path string) (*Repositories, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		Receipts: receipts.NewSQLiteRepository(db),
		db:       db,
	}, nil
}
