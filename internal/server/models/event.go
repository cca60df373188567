package models

import (
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/address"
)

type EventKind string

const (
	EventVaultInitialized EventKind = "VaultInitialized"
	EventDeposited        EventKind = "Deposited"
	EventWithdrawn        EventKind = "Withdrawn"
	EventVaultClosed      EventKind = "VaultClosed"
)

// Event is one committed custody operation, as journaled and published.
type Event struct {
	ID          string          `json:"id" cbor:"id"`
	Seq         int64           `json:"seq" cbor:"-"`
	Kind        EventKind       `json:"kind" cbor:"kind"`
	Vault       address.Address `json:"vault" cbor:"vault"`
	LifecycleID string          `json:"lifecycle_id" cbor:"lifecycle_id"`
	Owner       address.Address `json:"owner" cbor:"owner"`
	// Amount is the deposited or withdrawn value, or the reclaimed deposit on close.
	Amount     uint64 `json:"amount,omitempty" cbor:"amount,omitempty"`
	UnlockTime int64  `json:"unlock_time,omitempty" cbor:"unlock_time,omitempty"`
	Timestamp  int64  `json:"timestamp" cbor:"timestamp"`
}

// Statement is the archived history of one closed vault lifecycle.
type Statement struct {
	Vault       address.Address `json:"vault"`
	Owner       address.Address `json:"owner"`
	Holding     address.Address `json:"holding"`
	LifecycleID string          `json:"lifecycle_id"`
	UnlockTime  int64           `json:"unlock_time"`
	Events      []Event         `json:"events"`
	ClosedAt    time.Time       `json:"closed_at"`
}
