// Package vaults declares the repository contract for vault records.
package vaults

import (
	"context"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/server/models"
)

// Repository persists vault records keyed by their derived address.
type Repository interface {
	// Create inserts a new record. It returns common.ErrAlreadyInitialized
	// when a record already exists at that address.
	Create(ctx context.Context, v *models.Vault) error

	// Get returns the record or common.ErrorNotFound.
	Get(ctx context.Context, addr address.Address) (*models.Vault, error)

	// GetForUpdate is Get that also locks the row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, addr address.Address) (*models.Vault, error)

	// Delete removes the record; deleting a missing record is common.ErrorNotFound.
	Delete(ctx context.Context, addr address.Address) error
}
