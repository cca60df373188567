// Package address implements the deterministic addresses that replace a
// lookup table keyed by owner. Any party that knows the program identity
// and an owner identity can recompute where that owner's vault record and
// holding account live; nothing is allocated or indexed.
//
// Derivation is a one-way BLAKE3 derive-key hash over the program identity
// and length-prefixed seeds:
//
//	vault   = Derive(program, "state", owner)
//	holding = Derive(program, "vault", vault)
//
// The holding account is derived from the vault address, never from the
// owner, so it is only reachable through its parent record.
package address

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/dmitrijs2005/alarmlock/internal/common"
)

// Size is the byte length of an Address.
const Size = 32

// derivationContext is the BLAKE3 derive-key context string. Changing it
// moves every address, so it is versioned.
const derivationContext = "alarmlock 2026-01 program derived address v1"

var (
	stateLabel   = []byte("state")
	holdingLabel = []byte("vault")
)

var ErrInvalidAddress = errors.New("invalid address")

// Address identifies an account: an owner's public key, a vault record or a
// holding account.
type Address [Size]byte

// Zero is the zero address; it never results from derivation.
var Zero Address

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) IsZero() bool {
	return a == Zero
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Parse decodes a 64-character hex address.
func Parse(s string) (Address, error) {
	var a Address
	if len(s) != hex.EncodedLen(Size) {
		return a, fmt.Errorf("%w: want %d hex chars, got %d", ErrInvalidAddress, hex.EncodedLen(Size), len(s))
	}
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return a, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return a, nil
}

// FromPublicKey returns the personal account address of an owner identity.
func FromPublicKey(pub ed25519.PublicKey) (Address, error) {
	var a Address
	if len(pub) != ed25519.PublicKeySize {
		return a, fmt.Errorf("%w: public key must be %d bytes", ErrInvalidAddress, ed25519.PublicKeySize)
	}
	copy(a[:], pub)
	return a, nil
}

// PublicKey returns a as an Ed25519 public key.
func (a Address) PublicKey() ed25519.PublicKey {
	return ed25519.PublicKey(a[:])
}

// Derive computes the address for the given seeds under program.
func Derive(program Address, seeds ...[]byte) Address {
	h := blake3.NewDeriveKey(derivationContext)
	_, _ = h.Write(program[:])

	var n [4]byte
	for _, seed := range seeds {
		binary.BigEndian.PutUint32(n[:], uint32(len(seed)))
		_, _ = h.Write(n[:])
		_, _ = h.Write(seed)
	}

	var a Address
	copy(a[:], h.Sum(nil))
	return a
}

// VaultAddress returns the vault record address of owner.
func VaultAddress(program, owner Address) Address {
	return Derive(program, stateLabel, owner[:])
}

// HoldingAddress returns the holding account address of a vault record.
func HoldingAddress(program, vault Address) Address {
	return Derive(program, holdingLabel, vault[:])
}

// Pair is the pair of addresses a caller must present with every
// vault operation.
type Pair struct {
	Vault   Address
	Holding Address
}

// ForOwner derives both addresses of owner.
func ForOwner(program, owner Address) Pair {
	vault := VaultAddress(program, owner)
	return Pair{Vault: vault, Holding: HoldingAddress(program, vault)}
}

// Verify checks the caller-supplied pair against the derivation for owner.
func Verify(program, owner Address, got Pair) error {
	want := ForOwner(program, owner)
	if got.Vault != want.Vault {
		return fmt.Errorf("%w: vault %s, expected %s", common.ErrAddressMismatch, got.Vault, want.Vault)
	}
	if got.Holding != want.Holding {
		return fmt.Errorf("%w: holding %s, expected %s", common.ErrAddressMismatch, got.Holding, want.Holding)
	}
	return nil
}
