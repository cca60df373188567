// Package events publishes committed custody events to downstream consumers.
package events

import (
	"context"

	"github.com/dmitrijs2005/alarmlock/internal/logging"
	"github.com/dmitrijs2005/alarmlock/internal/server/models"
)

// Publisher delivers committed events. Publishing happens after commit, so a
// failure never undoes the operation that produced the event.
type Publisher interface {
	Publish(ctx context.Context, e models.Event) error
	Close() error
}

// LogPublisher writes every event to the log. It is used when no broker is
// configured.
type LogPublisher struct {
	logger logging.Logger
}

func NewLogPublisher(logger logging.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e models.Event) error {
	p.logger.Info(ctx, "vault event",
		"kind", string(e.Kind),
		"vault", e.Vault.String(),
		"lifecycle", e.LifecycleID,
		"amount", e.Amount,
		"seq", e.Seq,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
