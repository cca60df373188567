// Package custody is the vault state machine. Plan inspects a snapshot of
// the current state and either rejects a request with a named error or
// returns every effect the request will have. It never mutates anything;
// callers apply the returned effects inside a single transaction.
package custody

import (
	"math"
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/common"
	"github.com/dmitrijs2005/alarmlock/internal/server/models"
	"github.com/google/uuid"
)

// DefaultRecordDeposit is the storage deposit charged at Initialize and
// returned at Close, in base units.
const DefaultRecordDeposit uint64 = (128 + 51) * 6960

// MaxBalance bounds every account balance.
const MaxBalance uint64 = math.MaxInt64

type Params struct {
	Program       address.Address
	RecordDeposit uint64
	// NewID generates event and lifecycle ids. Defaults to random UUIDs.
	NewID func() string
}

func (p Params) newID() string {
	if p.NewID != nil {
		return p.NewID()
	}
	return uuid.NewString()
}

// Request is one mutating call as submitted by a caller.
type Request struct {
	Op     Op
	Caller address.Address
	Owner  address.Address
	// Addresses are the vault and holding addresses the caller acts upon.
	Addresses address.Pair
	// UnlockTime is used by Initialize only.
	UnlockTime int64
	// Amount is used by Deposit only.
	Amount uint64
}

// Snapshot is the committed state a request is planned against.
type Snapshot struct {
	Record     *models.Vault
	Holding    uint64
	OwnerFunds uint64
	// RecordFunds is the balance held at the vault record address, which
	// is the storage deposit while the vault is live.
	RecordFunds uint64
	Now         time.Time
}

type Transfer struct {
	From   address.Address
	To     address.Address
	Amount uint64
}

// Effects lists the mutations of one planned request, in application order:
// Create, Open, Transfers, Delete, Remove, then Event.
type Effects struct {
	Create    *models.Vault
	Open      []address.Address
	Transfers []Transfer
	Delete    *address.Address
	Remove    []address.Address
	Event     models.Event
}

// Plan validates req against snap and returns its effects.
func Plan(req Request, snap Snapshot, p Params) (*Effects, error) {
	if err := address.Verify(p.Program, req.Owner, req.Addresses); err != nil {
		return nil, err
	}
	if err := Authorize(req.Op, req.Caller, req.Owner, snap.Record); err != nil {
		return nil, err
	}

	switch req.Op {
	case OpInitialize:
		return planInitialize(req, snap, p)
	case OpDeposit:
		return planDeposit(req, snap, p)
	case OpWithdraw:
		return planWithdraw(req, snap, p)
	default:
		return planClose(req, snap, p)
	}
}

func planInitialize(req Request, snap Snapshot, p Params) (*Effects, error) {
	if snap.OwnerFunds < p.RecordDeposit {
		return nil, common.ErrInsufficientFunds
	}
	if _, err := add(snap.RecordFunds, p.RecordDeposit); err != nil {
		return nil, err
	}

	v := &models.Vault{
		Address:     req.Addresses.Vault,
		Owner:       req.Owner,
		Holding:     req.Addresses.Holding,
		UnlockTime:  req.UnlockTime,
		Initialized: true,
		Deposit:     p.RecordDeposit,
		LifecycleID: p.newID(),
	}

	eff := &Effects{
		Create: v,
		Open:   []address.Address{v.Address, v.Holding},
		Event:  event(models.EventVaultInitialized, v, snap.Now, p),
	}
	eff.Event.UnlockTime = v.UnlockTime
	eff.Transfers = transfers(req.Owner, v.Address, p.RecordDeposit)

	return eff, nil
}

func planDeposit(req Request, snap Snapshot, p Params) (*Effects, error) {
	if req.Amount == 0 {
		return nil, common.ErrInvalidAmount
	}
	if snap.OwnerFunds < req.Amount {
		return nil, common.ErrInsufficientFunds
	}
	if _, err := add(snap.Holding, req.Amount); err != nil {
		return nil, err
	}

	v := snap.Record
	eff := &Effects{
		Transfers: transfers(req.Owner, v.Holding, req.Amount),
		Event:     event(models.EventDeposited, v, snap.Now, p),
	}
	eff.Event.Amount = req.Amount

	return eff, nil
}

func planWithdraw(req Request, snap Snapshot, p Params) (*Effects, error) {
	v := snap.Record
	if v.Locked(snap.Now) {
		return nil, common.ErrVaultStillLocked
	}
	if _, err := add(snap.OwnerFunds, snap.Holding); err != nil {
		return nil, err
	}

	eff := &Effects{
		Transfers: transfers(v.Holding, req.Owner, snap.Holding),
		Event:     event(models.EventWithdrawn, v, snap.Now, p),
	}
	eff.Event.Amount = snap.Holding

	return eff, nil
}

func planClose(req Request, snap Snapshot, p Params) (*Effects, error) {
	if snap.Holding > 0 {
		return nil, common.ErrVaultNotEmpty
	}
	if _, err := add(snap.OwnerFunds, snap.RecordFunds); err != nil {
		return nil, err
	}

	v := snap.Record
	addr := v.Address
	eff := &Effects{
		Transfers: transfers(v.Address, req.Owner, snap.RecordFunds),
		Delete:    &addr,
		Remove:    []address.Address{v.Holding, v.Address},
		Event:     event(models.EventVaultClosed, v, snap.Now, p),
	}
	eff.Event.Amount = snap.RecordFunds

	return eff, nil
}

// transfers drops zero-value moves; they change nothing.
func transfers(from, to address.Address, amount uint64) []Transfer {
	if amount == 0 {
		return nil
	}
	return []Transfer{{From: from, To: to, Amount: amount}}
}

func event(kind models.EventKind, v *models.Vault, now time.Time, p Params) models.Event {
	return models.Event{
		ID:          p.newID(),
		Kind:        kind,
		Vault:       v.Address,
		LifecycleID: v.LifecycleID,
		Owner:       v.Owner,
		Timestamp:   now.Unix(),
	}
}

func add(a, b uint64) (uint64, error) {
	if a > MaxBalance || b > MaxBalance-a {
		return 0, common.ErrOverflow
	}
	return a + b, nil
}
