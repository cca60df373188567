// Package accounts declares the repository contract for native-value
// balances: owners' personal accounts and vault holding accounts alike.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/alarmlock/internal/address"
)

type Repository interface {
	// Balance returns the balance of addr; a missing account has balance 0.
	Balance(ctx context.Context, addr address.Address) (uint64, error)

	// BalanceForUpdate is Balance that also locks the row, if it exists,
	// until the surrounding transaction ends.
	BalanceForUpdate(ctx context.Context, addr address.Address) (uint64, error)

	// Open creates a zero-balance account; an existing account is left alone.
	Open(ctx context.Context, addr address.Address) error

	// Credit adds amount to addr, creating the account if needed, and
	// returns the new balance.
	Credit(ctx context.Context, addr address.Address, amount uint64) (uint64, error)

	// Debit subtracts amount from addr and returns the new balance. It
	// returns common.ErrInsufficientFunds when the balance is too small.
	Debit(ctx context.Context, addr address.Address, amount uint64) (uint64, error)

	// Remove deletes an empty account. Removing a non-empty account is
	// common.ErrVaultNotEmpty; a missing account is not an error.
	Remove(ctx context.Context, addr address.Address) error
}
