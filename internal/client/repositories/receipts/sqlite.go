package receipts

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, rc Receipt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO receipts (event_id, seq, kind, owner, vault, lifecycle_id, amount, unlock_time, timestamp, server, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO NOTHING
	`, rc.EventID, rc.Seq, rc.Kind, rc.Owner, rc.Vault, rc.LifecycleID,
		int64(rc.Amount), rc.UnlockTime, rc.Timestamp, rc.Server, rc.RecordedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to add receipt %s: %w", rc.EventID, err)
	}
	return nil
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, owner string) ([]Receipt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT event_id, seq, kind, owner, vault, lifecycle_id, amount, unlock_time, timestamp, server, recorded_at
		FROM receipts
		WHERE owner = ?
		ORDER BY timestamp, seq
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	result := make([]Receipt, 0)
	for rows.Next() {
		var (
			rc         Receipt
			amount     int64
			recordedAt int64
		)
		if err := rows.Scan(&rc.EventID, &rc.Seq, &rc.Kind, &rc.Owner, &rc.Vault, &rc.LifecycleID,
			&amount, &rc.UnlockTime, &rc.Timestamp, &rc.Server, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan receipt row: %w", err)
		}
		rc.Amount = uint64(amount)
		rc.RecordedAt = time.Unix(recordedAt, 0).UTC()
		result = append(result, rc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipt rows: %w", err)
	}

	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM receipts`)
	if err != nil {
		return fmt.Errorf("failed to clear receipts: %w", err)
	}
	return nil
}
