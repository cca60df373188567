package models

import (
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/address"
)

// Challenge is a single-use login nonce issued to an owner identity.
type Challenge struct {
	Owner     address.Address
	Nonce     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
