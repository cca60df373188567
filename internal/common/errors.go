// Package common defines shared constants and sentinel errors used across
// client and server layers of alarmlock. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrChallengeExpired = errors.New("challenge expired")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Error is a custody failure with a stable name. The name is what travels
// over the wire, so callers on the other side can branch on it.
type Error struct {
	Name string
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

func newError(name, msg string) *Error {
	e := &Error{Name: name, msg: msg}
	registry[name] = e
	return e
}

var registry = map[string]*Error{}

var (
	// Authorization.
	ErrUnauthorized = newError("Unauthorized", "unauthorized access to vault")

	// Lifecycle state.
	ErrAlreadyInitialized = newError("AlreadyInitialized", "vault already initialized")
	ErrVaultNotFound      = newError("VaultNotFound", "vault not found")
	ErrVaultStillLocked   = newError("VaultStillLocked", "vault is still locked")
	ErrVaultNotEmpty      = newError("VaultNotEmpty", "vault is not empty")
	ErrRecordNotFound     = newError("RecordNotFound", "record not found")

	// Resources.
	ErrInsufficientFunds = newError("InsufficientFunds", "insufficient funds")

	// Request validation.
	ErrInvalidAmount   = newError("InvalidAmount", "amount must be positive")
	ErrAddressMismatch = newError("AddressMismatch", "address does not match derivation")
	ErrOverflow        = newError("Overflow", "arithmetic overflow")

	// Funding.
	ErrAirdropDisabled = newError("AirdropDisabled", "airdrop is disabled")
	ErrAirdropLimit    = newError("AirdropLimit", "airdrop amount exceeds limit")
)

// Name returns the stable name of the custody error wrapped in err,
// or "" when err is not a custody error.
func Name(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Name
	}
	return ""
}

// FromName returns the custody error registered under name.
func FromName(name string) (*Error, bool) {
	e, ok := registry[name]
	return e, ok
}
