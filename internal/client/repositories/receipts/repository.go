// Package receipts stores the confirmations of committed vault operations
// on the local machine, so a user keeps a record of what they signed even
// when the service is unreachable.
package receipts

import (
	"context"
	"time"
)

// Receipt is one committed operation as reported back by the service.
type Receipt struct {
	EventID     string
	Seq         int64
	Kind        string
	Owner       string
	Vault       string
	LifecycleID string
	Amount      uint64
	UnlockTime  int64
	Timestamp   int64
	// Server is the endpoint that confirmed the operation.
	Server     string
	RecordedAt time.Time
}

type Repository interface {
	// Add stores r. Adding the same event twice is a no-op.
	Add(ctx context.Context, r Receipt) error
	// ListByOwner returns the owner's receipts, oldest first.
	ListByOwner(ctx context.Context, owner string) ([]Receipt, error)
	Clear(ctx context.Context) error
}
