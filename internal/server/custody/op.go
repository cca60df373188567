package custody

import (
	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/common"
	"github.com/dmitrijs2005/alarmlock/internal/server/models"
)

// Op names one of the four mutating vault operations.
type Op int

const (
	OpInitialize Op = iota + 1
	OpDeposit
	OpWithdraw
	OpClose
)

func (o Op) String() string {
	switch o {
	case OpInitialize:
		return "initialize"
	case OpDeposit:
		return "deposit"
	case OpWithdraw:
		return "withdraw"
	case OpClose:
		return "close"
	}
	return "unknown"
}

// Authorize is the guard evaluated at the top of every operation. The caller
// must be the owner the request addresses and, once a record exists, the
// owner stored in it. Lifecycle checks follow: Initialize needs no record,
// everything else needs one.
func Authorize(op Op, caller, owner address.Address, record *models.Vault) error {
	if caller.IsZero() || caller != owner {
		return common.ErrUnauthorized
	}
	if record != nil && record.Owner != caller {
		return common.ErrUnauthorized
	}

	switch op {
	case OpInitialize:
		if record != nil {
			return common.ErrAlreadyInitialized
		}
	case OpDeposit, OpWithdraw, OpClose:
		if record == nil || !record.Initialized {
			return common.ErrVaultNotFound
		}
	default:
		return common.ErrUnauthorized
	}

	return nil
}
