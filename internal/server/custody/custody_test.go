package custody

import (
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/common"
	"github.com/dmitrijs2005/alarmlock/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(b byte) address.Address {
	var a address.Address
	a[0] = b
	return a
}

var program = addr(0xee)

// ledger applies effects to in-memory state the way the service applies
// them to the database.
type ledger struct {
	t        *testing.T
	now      time.Time
	records  map[address.Address]*models.Vault
	balances map[address.Address]uint64
	events   []models.Event
	ids      int
	params   Params
}

func newLedger(t *testing.T) *ledger {
	l := &ledger{
		t:        t,
		now:      time.Unix(1_700_000_000, 0),
		records:  map[address.Address]*models.Vault{},
		balances: map[address.Address]uint64{},
	}
	l.params = Params{
		Program:       program,
		RecordDeposit: DefaultRecordDeposit,
		NewID: func() string {
			l.ids++
			return fmt.Sprintf("id-%d", l.ids)
		},
	}
	return l
}

func (l *ledger) snapshot(owner address.Address) Snapshot {
	pair := address.ForOwner(program, owner)
	return Snapshot{
		Record:      l.records[pair.Vault],
		Holding:     l.balances[pair.Holding],
		OwnerFunds:  l.balances[owner],
		RecordFunds: l.balances[pair.Vault],
		Now:         l.now,
	}
}

func (l *ledger) do(req Request) error {
	if req.Addresses == (address.Pair{}) {
		req.Addresses = address.ForOwner(program, req.Owner)
	}
	eff, err := Plan(req, l.snapshot(req.Owner), l.params)
	if err != nil {
		return err
	}

	if eff.Create != nil {
		l.records[eff.Create.Address] = eff.Create
	}
	for _, a := range eff.Open {
		if _, ok := l.balances[a]; !ok {
			l.balances[a] = 0
		}
	}
	for _, tr := range eff.Transfers {
		require.GreaterOrEqual(l.t, l.balances[tr.From], tr.Amount)
		l.balances[tr.From] -= tr.Amount
		l.balances[tr.To] += tr.Amount
	}
	if eff.Delete != nil {
		delete(l.records, *eff.Delete)
	}
	for _, a := range eff.Remove {
		require.Zero(l.t, l.balances[a])
		delete(l.balances, a)
	}
	l.events = append(l.events, eff.Event)
	return nil
}

func (l *ledger) initialize(owner address.Address, unlock int64) error {
	return l.do(Request{Op: OpInitialize, Caller: owner, Owner: owner, UnlockTime: unlock})
}

func (l *ledger) deposit(owner address.Address, amount uint64) error {
	return l.do(Request{Op: OpDeposit, Caller: owner, Owner: owner, Amount: amount})
}

func (l *ledger) withdraw(owner address.Address) error {
	return l.do(Request{Op: OpWithdraw, Caller: owner, Owner: owner})
}

func (l *ledger) close(owner address.Address) error {
	return l.do(Request{Op: OpClose, Caller: owner, Owner: owner})
}

func (l *ledger) holding(owner address.Address) uint64 {
	return l.balances[address.ForOwner(program, owner).Holding]
}

func (l *ledger) record(owner address.Address) *models.Vault {
	return l.records[address.ForOwner(program, owner).Vault]
}

const tenth = common.UnitsPerNative / 10

func TestInitialize_CreatesRecordAndHolding(t *testing.T) {
	l := newLedger(t)
	owner := addr(1)
	l.balances[owner] = common.UnitsPerNative

	require.NoError(t, l.initialize(owner, l.now.Unix()+60))

	v := l.record(owner)
	require.NotNil(t, v)
	assert.Equal(t, owner, v.Owner)
	assert.True(t, v.Initialized)
	assert.Equal(t, l.now.Unix()+60, v.UnlockTime)
	assert.Equal(t, address.ForOwner(program, owner).Holding, v.Holding)
	assert.Equal(t, "id-1", v.LifecycleID)

	_, opened := l.balances[v.Holding]
	assert.True(t, opened, "holding account materializes with the record")
	assert.Zero(t, l.holding(owner))
	assert.Equal(t, common.UnitsPerNative-DefaultRecordDeposit, l.balances[owner])

	require.Len(t, l.events, 1)
	assert.Equal(t, models.EventVaultInitialized, l.events[0].Kind)
	assert.Equal(t, v.UnlockTime, l.events[0].UnlockTime)
	assert.Equal(t, "id-1", l.events[0].LifecycleID)
}

func TestInitialize_CannotCoverDeposit(t *testing.T) {
	l := newLedger(t)
	owner := addr(1)
	l.balances[owner] = DefaultRecordDeposit - 1

	assert.ErrorIs(t, l.initialize(owner, 0), common.ErrInsufficientFunds)
	assert.Nil(t, l.record(owner))
}

func TestInitialize_WithoutDepositNeedsNoFunds(t *testing.T) {
	l := newLedger(t)
	l.params.RecordDeposit = 0
	owner := addr(1)

	require.NoError(t, l.initialize(owner, 0))
	assert.NotNil(t, l.record(owner))
}

// At most one record per owner; a repeat always fails.
func TestSingleRecordPerOwner(t *testing.T) {
	l := newLedger(t)
	owner := addr(1)
	l.balances[owner] = common.UnitsPerNative

	require.NoError(t, l.initialize(owner, l.now.Unix()+60))
	for _, unlock := range []int64{0, l.now.Unix() + 60, l.now.Unix() + 3600} {
		assert.ErrorIs(t, l.initialize(owner, unlock), common.ErrAlreadyInitialized)
	}
	assert.Equal(t, l.now.Unix()+60, l.record(owner).UnlockTime)
}

// Withdraw fails iff now < unlock time.
func TestLockBoundary(t *testing.T) {
	const unlock = 1_700_000_100

	for _, offset := range []int64{-100, -2, -1, 0, 1, 100} {
		t.Run(fmt.Sprintf("offset %d", offset), func(t *testing.T) {
			l := newLedger(t)
			owner := addr(1)
			l.balances[owner] = common.UnitsPerNative
			require.NoError(t, l.initialize(owner, unlock))

			l.now = time.Unix(unlock+offset, 0)
			err := l.withdraw(owner)
			if offset < 0 {
				assert.ErrorIs(t, err, common.ErrVaultStillLocked)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLockBoundary_SubSecondBeforeUnlock(t *testing.T) {
	l := newLedger(t)
	owner := addr(1)
	l.balances[owner] = common.UnitsPerNative
	require.NoError(t, l.initialize(owner, 1_700_000_100))

	l.now = time.Unix(1_700_000_099, 999_999_999)
	assert.ErrorIs(t, l.withdraw(owner), common.ErrVaultStillLocked)
}

func TestConservation(t *testing.T) {
	l := newLedger(t)
	owner := addr(1)
	l.balances[owner] = 5 * common.UnitsPerNative
	require.NoError(t, l.initialize(owner, l.now.Unix()))

	before := l.balances[owner]
	require.NoError(t, l.deposit(owner, 3*tenth))
	assert.Equal(t, before-3*tenth, l.balances[owner])
	assert.Equal(t, uint64(3*tenth), l.holding(owner))

	require.NoError(t, l.deposit(owner, tenth))
	assert.Equal(t, uint64(4*tenth), l.holding(owner))

	before = l.balances[owner]
	require.NoError(t, l.withdraw(owner))
	assert.Zero(t, l.holding(owner))
	assert.Equal(t, before+4*tenth, l.balances[owner])
	assert.Equal(t, uint64(4*tenth), l.events[len(l.events)-1].Amount)
}

func TestDeposit_Failures(t *testing.T) {
	l := newLedger(t)
	owner := addr(1)
	l.balances[owner] = DefaultRecordDeposit + 10

	assert.ErrorIs(t, l.deposit(owner, 1), common.ErrVaultNotFound)

	require.NoError(t, l.initialize(owner, l.now.Unix()+60))
	assert.ErrorIs(t, l.deposit(owner, 0), common.ErrInvalidAmount)
	assert.ErrorIs(t, l.deposit(owner, 11), common.ErrInsufficientFunds)
	assert.Equal(t, uint64(10), l.balances[owner])
	assert.Zero(t, l.holding(owner))

	require.NoError(t, l.deposit(owner, 10), "deposit is legal while locked")
}

func TestDeposit_Overflow(t *testing.T) {
	l := newLedger(t)
	l.params.RecordDeposit = 0
	owner := addr(1)
	require.NoError(t, l.initialize(owner, 0))

	l.balances[address.ForOwner(program, owner).Holding] = MaxBalance
	l.balances[owner] = 1

	assert.ErrorIs(t, l.deposit(owner, 1), common.ErrOverflow)
}

func TestWithdraw_EmptyIsNoop(t *testing.T) {
	l := newLedger(t)
	owner := addr(1)
	l.balances[owner] = common.UnitsPerNative
	require.NoError(t, l.initialize(owner, l.now.Unix()))

	before := l.balances[owner]
	require.NoError(t, l.withdraw(owner))
	require.NoError(t, l.withdraw(owner))
	assert.Equal(t, before, l.balances[owner])
	assert.Zero(t, l.holding(owner))

	last := l.events[len(l.events)-1]
	assert.Equal(t, models.EventWithdrawn, last.Kind)
	assert.Zero(t, last.Amount)
}

func TestClose_RequiresEmptyHolding(t *testing.T) {
	l := newLedger(t)
	owner := addr(1)
	l.balances[owner] = common.UnitsPerNative
	require.NoError(t, l.initialize(owner, l.now.Unix()))
	require.NoError(t, l.deposit(owner, tenth))

	assert.ErrorIs(t, l.close(owner), common.ErrVaultNotEmpty)
	assert.NotNil(t, l.record(owner), "close never auto-withdraws")
	assert.Equal(t, uint64(tenth), l.holding(owner))

	require.NoError(t, l.withdraw(owner))
	require.NoError(t, l.close(owner))
	assert.Nil(t, l.record(owner))
	assert.Equal(t, uint64(common.UnitsPerNative), l.balances[owner], "deposit is reclaimed")

	last := l.events[len(l.events)-1]
	assert.Equal(t, models.EventVaultClosed, last.Kind)
	assert.Equal(t, DefaultRecordDeposit, last.Amount)

	assert.ErrorIs(t, l.close(owner), common.ErrVaultNotFound)
}

func TestClose_WhileLocked(t *testing.T) {
	l := newLedger(t)
	owner := addr(1)
	l.balances[owner] = common.UnitsPerNative
	require.NoError(t, l.initialize(owner, l.now.Unix()+3600))

	require.NoError(t, l.close(owner))
	assert.Nil(t, l.record(owner))
}

func TestLifecycleRestart(t *testing.T) {
	l := newLedger(t)
	owner := addr(1)
	l.balances[owner] = common.UnitsPerNative
	require.NoError(t, l.initialize(owner, l.now.Unix()))
	require.NoError(t, l.deposit(owner, tenth))
	require.NoError(t, l.withdraw(owner))
	first := l.record(owner).LifecycleID
	require.NoError(t, l.close(owner))

	require.NoError(t, l.initialize(owner, l.now.Unix()+500))
	v := l.record(owner)
	assert.Equal(t, l.now.Unix()+500, v.UnlockTime)
	assert.Zero(t, l.holding(owner))
	assert.NotEqual(t, first, v.LifecycleID)
}

func TestForeignCallerTouchesNothing(t *testing.T) {
	l := newLedger(t)
	alice, mallory := addr(1), addr(2)
	l.balances[alice] = common.UnitsPerNative
	l.balances[mallory] = common.UnitsPerNative
	require.NoError(t, l.initialize(alice, 0))
	require.NoError(t, l.deposit(alice, tenth))

	for _, op := range []Op{OpInitialize, OpDeposit, OpWithdraw, OpClose} {
		err := l.do(Request{Op: op, Caller: mallory, Owner: alice, Amount: 1})
		assert.ErrorIs(t, err, common.ErrUnauthorized, op.String())
	}
	assert.Equal(t, uint64(tenth), l.holding(alice))
}

func TestAddressMismatch(t *testing.T) {
	l := newLedger(t)
	alice, bob := addr(1), addr(2)
	l.balances[alice] = common.UnitsPerNative

	err := l.do(Request{
		Op: OpInitialize, Caller: alice, Owner: alice,
		Addresses: address.ForOwner(program, bob),
	})
	assert.ErrorIs(t, err, common.ErrAddressMismatch)

	pair := address.ForOwner(program, alice)
	pair.Holding = addr(7)
	err = l.do(Request{Op: OpInitialize, Caller: alice, Owner: alice, Addresses: pair})
	assert.ErrorIs(t, err, common.ErrAddressMismatch)
}

// Lock for 60s, deposit 0.1, withdraw early, wait, withdraw, close.
func TestScenarios_ABC(t *testing.T) {
	l := newLedger(t)
	owner := addr(1)
	l.balances[owner] = 2 * common.UnitsPerNative
	start := l.now

	require.NoError(t, l.initialize(owner, start.Unix()+60))
	require.NoError(t, l.deposit(owner, tenth))
	assert.ErrorIs(t, l.withdraw(owner), common.ErrVaultStillLocked)

	before := l.balances[owner]
	l.now = start.Add(61 * time.Second)
	require.NoError(t, l.withdraw(owner))
	assert.Zero(t, l.holding(owner))
	assert.Equal(t, before+tenth, l.balances[owner])

	require.NoError(t, l.close(owner))
	assert.Nil(t, l.record(owner))
	assert.ErrorIs(t, l.deposit(owner, 1), common.ErrVaultNotFound)
}

func TestScenarioD_PastUnlockTime(t *testing.T) {
	l := newLedger(t)
	owner := addr(1)
	l.balances[owner] = common.UnitsPerNative

	require.NoError(t, l.initialize(owner, l.now.Unix()-10))
	assert.False(t, l.record(owner).Locked(l.now))
	require.NoError(t, l.withdraw(owner))
}

func TestPlan_DoesNotMutateSnapshot(t *testing.T) {
	owner := addr(1)
	pair := address.ForOwner(program, owner)
	rec := &models.Vault{Address: pair.Vault, Holding: pair.Holding, Owner: owner, Initialized: true, UnlockTime: 10}
	snap := Snapshot{Record: rec, Holding: 5, OwnerFunds: 7, Now: time.Unix(100, 0)}
	copyRec := *rec

	_, err := Plan(Request{Op: OpWithdraw, Caller: owner, Owner: owner, Addresses: pair}, snap, Params{Program: program})
	require.NoError(t, err)
	assert.Equal(t, copyRec, *rec)
	assert.Equal(t, uint64(5), snap.Holding)
}

func TestPlan_DefaultIDsAreUnique(t *testing.T) {
	owner := addr(1)
	pair := address.ForOwner(program, owner)
	snap := Snapshot{Now: time.Unix(100, 0)}

	a, err := Plan(Request{Op: OpInitialize, Caller: owner, Owner: owner, Addresses: pair}, snap, Params{Program: program})
	require.NoError(t, err)
	b, err := Plan(Request{Op: OpInitialize, Caller: owner, Owner: owner, Addresses: pair}, snap, Params{Program: program})
	require.NoError(t, err)

	assert.NotEqual(t, a.Create.LifecycleID, b.Create.LifecycleID)
	assert.NotEqual(t, a.Event.ID, b.Event.ID)
}
