// Package challenges declares the repository contract for single-use
// login challenges.
package challenges

import (
	"context"
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/server/models"
)

type Repository interface {
	// Create stores nonce for owner, valid for validity from now.
	Create(ctx context.Context, owner address.Address, nonce string, validity time.Duration) (*models.Challenge, error)

	// Find returns the challenge or common.ErrorNotFound.
	Find(ctx context.Context, nonce string) (*models.Challenge, error)

	// Delete removes a challenge; deleting a missing one is not an error.
	Delete(ctx context.Context, nonce string) error

	// DeleteExpired removes every challenge that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
