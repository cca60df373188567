package challenges

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/common"
	"github.com/dmitrijs2005/alarmlock/internal/dbx"
	"github.com/dmitrijs2005/alarmlock/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// now is a seam for tests.
var now = time.Now

func (r *PostgresRepository) Create(ctx context.Context, owner address.Address, nonce string, validity time.Duration) (*models.Challenge, error) {
	query :=
		`INSERT INTO auth_challenges (nonce, owner, expires_at)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`

	c := &models.Challenge{Owner: owner, Nonce: nonce, ExpiresAt: now().Add(validity)}

	err := r.db.QueryRowContext(ctx, query, nonce, owner.String(), c.ExpiresAt).Scan(&c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) Find(ctx context.Context, nonce string) (*models.Challenge, error) {
	query :=
		`SELECT nonce, owner, expires_at, created_at FROM auth_challenges
		 WHERE nonce = $1`

	var (
		c      models.Challenge
		ownerS string
	)
	err := r.db.QueryRowContext(ctx, query, nonce).Scan(&c.Nonce, &ownerS, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if c.Owner, err = address.Parse(ownerS); err != nil {
		return nil, fmt.Errorf("corrupt challenge owner: %w", err)
	}

	return &c, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, nonce string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM auth_challenges WHERE nonce = $1`, nonce); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auth_challenges WHERE expires_at < $1`, t)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
