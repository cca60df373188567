// Package models defines server-side data models persisted in the database.
package models

import (
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/address"
)

// Vault is the persisted vault record of one owner.
type Vault struct {
	// Address is the derived record address; it is the primary key.
	Address address.Address
	// Owner is the sole identity allowed to operate the vault. Immutable.
	Owner address.Address
	// Holding is the derived holding account address.
	Holding address.Address
	// UnlockTime is the unix second from which withdrawal is allowed. Immutable.
	UnlockTime  int64
	Initialized bool
	// Deposit is the storage deposit taken at initialization and returned on close.
	Deposit uint64
	// LifecycleID distinguishes successive lifecycles of the same address.
	LifecycleID string
	CreatedAt   time.Time
}

// Locked reports whether withdrawal is still forbidden at now. The boundary
// second itself is already unlocked.
func (v *Vault) Locked(now time.Time) bool {
	return now.Unix() < v.UnlockTime
}
