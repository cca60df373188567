package events

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/alarmlock/internal/codec"
	"github.com/dmitrijs2005/alarmlock/internal/dbx"
	"github.com/dmitrijs2005/alarmlock/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, e *models.Event) error {
	payload, err := codec.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	query :=
		`INSERT INTO vault_events (id, vault, lifecycle_id, kind, payload)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING seq`

	err = r.db.QueryRowContext(ctx, query,
		e.ID, e.Vault.String(), e.LifecycleID, string(e.Kind), payload,
	).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListByLifecycle(ctx context.Context, lifecycleID string) ([]models.Event, error) {
	query :=
		`SELECT seq, payload FROM vault_events
		 WHERE lifecycle_id = $1
		 ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query, lifecycleID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Event, 0)
	for rows.Next() {
		var (
			seq     int64
			payload []byte
		)
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}

		var e models.Event
		if err := codec.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", seq, err)
		}
		e.Seq = seq
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
