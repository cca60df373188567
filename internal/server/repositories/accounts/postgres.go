package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/common"
	"github.com/dmitrijs2005/alarmlock/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Balance(ctx context.Context, addr address.Address) (uint64, error) {
	return r.balance(ctx, `SELECT balance FROM accounts WHERE address = $1`, addr)
}

func (r *PostgresRepository) BalanceForUpdate(ctx context.Context, addr address.Address) (uint64, error) {
	return r.balance(ctx, `SELECT balance FROM accounts WHERE address = $1 FOR UPDATE`, addr)
}

func (r *PostgresRepository) balance(ctx context.Context, query string, addr address.Address) (uint64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx, query, addr.String()).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return uint64(balance), nil
}

func (r *PostgresRepository) Open(ctx context.Context, addr address.Address) error {
	query :=
		`INSERT INTO accounts (address, balance)
		 VALUES ($1, 0)
		 ON CONFLICT (address) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, addr.String()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Credit(ctx context.Context, addr address.Address, amount uint64) (uint64, error) {
	if amount > math.MaxInt64 {
		return 0, common.ErrOverflow
	}

	query :=
		`INSERT INTO accounts (address, balance)
		 VALUES ($1, $2)
		 ON CONFLICT (address) DO UPDATE
		 SET balance = accounts.balance + EXCLUDED.balance, updated_at = now()
		 RETURNING balance`

	var balance int64
	if err := r.db.QueryRowContext(ctx, query, addr.String(), int64(amount)).Scan(&balance); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return uint64(balance), nil
}

func (r *PostgresRepository) Debit(ctx context.Context, addr address.Address, amount uint64) (uint64, error) {
	if amount > math.MaxInt64 {
		return 0, common.ErrInsufficientFunds
	}

	query :=
		`UPDATE accounts
		 SET balance = balance - $2, updated_at = now()
		 WHERE address = $1 AND balance >= $2
		 RETURNING balance`

	var balance int64
	err := r.db.QueryRowContext(ctx, query, addr.String(), int64(amount)).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrInsufficientFunds
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return uint64(balance), nil
}

func (r *PostgresRepository) Remove(ctx context.Context, addr address.Address) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE address = $1 AND balance = 0`, addr.String())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n > 0 {
		return nil
	}

	balance, err := r.Balance(ctx, addr)
	if err != nil {
		return err
	}
	if balance != 0 {
		return common.ErrVaultNotEmpty
	}
	return nil
}
