package vaults

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

const selectVault = `SELECT address, owner, holding, unlock_time, initialized, deposit, lifecycle_id, created_at
		 FROM vaults
		 WHERE address = $1`

func (r *PostgresRepository) Create(ctx context.Context, v *models.Vault) error {
	query :=
		`INSERT INTO vaults (address, owner, holding, unlock_time, initialized, deposit, lifecycle_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		v.Address.String(), v.Owner.String(), v.Holding.String(),
		v.UnlockTime, v.Initialized, int64(v.Deposit), v.LifecycleID,
	).Scan(&v.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrAlreadyInitialized
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, addr address.Address) (*models.Vault, error) {
	return r.get(ctx, selectVault, addr)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, addr address.Address) (*models.Vault, error) {
	return r.get(ctx, selectVault+` FOR UPDATE`, addr)
}

func (r *PostgresRepository) get(ctx context.Context, query string, addr address.Address) (*models.Vault, error) {
	var (
		v                    models.Vault
		addrS, ownerS, holdS string
		deposit              int64
	)

	err := r.db.QueryRowContext(ctx, query, addr.String()).Scan(
		&addrS, &ownerS, &holdS, &v.UnlockTime, &v.Initialized, &deposit, &v.LifecycleID, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if v.Address, err = address.Parse(addrS); err != nil {
		return nil, fmt.Errorf("corrupt vault address: %w", err)
	}
	if v.Owner, err = address.Parse(ownerS); err != nil {
		return nil, fmt.Errorf("corrupt vault owner: %w", err)
	}
	if v.Holding, err = address.Parse(holdS); err != nil {
		return nil, fmt.Errorf("corrupt vault holding: %w", err)
	}
	v.Deposit = uint64(deposit)

	return &v, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, addr address.Address) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vaults WHERE address = $1`, addr.String())
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
