// Package events declares the repository contract for the custody event
// journal.
package events

import (
	"context"

	"github.com/dmitrijs2005/alarmlock/internal/server/models"
)

type Repository interface {
	// Append journals e and assigns e.Seq.
	Append(ctx context.Context, e *models.Event) error

	// ListByLifecycle returns the events of one vault lifecycle in commit order.
	ListByLifecycle(ctx context.Context, lifecycleID string) ([]models.Event, error)
}
