package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/common"
	"github.com/dmitrijs2005/alarmlock/internal/dbx"
	"github.com/dmitrijs2005/alarmlock/internal/server/models"
	"github.com/dmitrijs2005/alarmlock/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/alarmlock/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/alarmlock/internal/server/repositories/events"
	"github.com/dmitrijs2005/alarmlock/internal/server/repositories/vaults"
)

// memStore backs every fake repository. It ignores transactions: a test that
// expects a rollback also checks that nothing was written.
type memStore struct {
	mu         sync.Mutex
	vaults     map[address.Address]models.Vault
	balances   map[address.Address]uint64
	events     []models.Event
	challenges map[string]models.Challenge
	fail       map[string]error
	writes     int
}

func newMemStore() *memStore {
	return &memStore{
		vaults:     map[address.Address]models.Vault{},
		balances:   map[address.Address]uint64{},
		challenges: map[string]models.Challenge{},
		fail:       map[string]error{},
	}
}

func (s *memStore) failure(op string) error {
	return s.fail[op]
}

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Vaults(dbx.DBTX) vaults.Repository            { return &fakeVaults{m.s} }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository        { return &fakeAccounts{m.s} }
func (m *fakeRepoManager) Events(dbx.DBTX) events.Repository            { return &fakeEvents{m.s} }
func (m *fakeRepoManager) Challenges(dbx.DBTX) challenges.Repository    { return &fakeChallenges{m.s} }

type fakeVaults struct{ s *memStore }

func (r *fakeVaults) Create(_ context.Context, v *models.Vault) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("vaults.Create"); err != nil {
		return err
	}
	if _, ok := r.s.vaults[v.Address]; ok {
		return common.ErrAlreadyInitialized
	}
	v.CreatedAt = time.Unix(1, 0)
	r.s.vaults[v.Address] = *v
	r.s.writes++
	return nil
}

func (r *fakeVaults) Get(_ context.Context, a address.Address) (*models.Vault, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("vaults.Get"); err != nil {
		return nil, err
	}
	v, ok := r.s.vaults[a]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &v, nil
}

func (r *fakeVaults) GetForUpdate(ctx context.Context, a address.Address) (*models.Vault, error) {
	return r.Get(ctx, a)
}

func (r *fakeVaults) Delete(_ context.Context, a address.Address) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.vaults[a]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.vaults, a)
	r.s.writes++
	return nil
}

type fakeAccounts struct{ s *memStore }

func (r *fakeAccounts) Balance(_ context.Context, a address.Address) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.balances[a], nil
}

func (r *fakeAccounts) BalanceForUpdate(ctx context.Context, a address.Address) (uint64, error) {
	if err := r.s.failure("accounts.BalanceForUpdate"); err != nil {
		return 0, err
	}
	return r.Balance(ctx, a)
}

func (r *fakeAccounts) Open(_ context.Context, a address.Address) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.balances[a]; !ok {
		r.s.balances[a] = 0
	}
	r.s.writes++
	return nil
}

func (r *fakeAccounts) Credit(_ context.Context, a address.Address, amount uint64) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.balances[a] += amount
	r.s.writes++
	return r.s.balances[a], nil
}

func (r *fakeAccounts) Debit(_ context.Context, a address.Address, amount uint64) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.balances[a] < amount {
		return 0, common.ErrInsufficientFunds
	}
	r.s.balances[a] -= amount
	r.s.writes++
	return r.s.balances[a], nil
}

func (r *fakeAccounts) Remove(_ context.Context, a address.Address) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.balances[a] != 0 {
		return common.ErrVaultNotEmpty
	}
	delete(r.s.balances, a)
	r.s.writes++
	return nil
}

type fakeEvents struct{ s *memStore }

func (r *fakeEvents) Append(_ context.Context, e *models.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("events.Append"); err != nil {
		return err
	}
	e.Seq = int64(len(r.s.events) + 1)
	r.s.events = append(r.s.events, *e)
	r.s.writes++
	return nil
}

func (r *fakeEvents) ListByLifecycle(_ context.Context, id string) ([]models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("events.ListByLifecycle"); err != nil {
		return nil, err
	}
	out := make([]models.Event, 0)
	for _, e := range r.s.events {
		if e.LifecycleID == id {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

type fakeChallenges struct{ s *memStore }

func (r *fakeChallenges) Create(_ context.Context, owner address.Address, nonce string, validity time.Duration) (*models.Challenge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("challenges.Create"); err != nil {
		return nil, err
	}
	c := models.Challenge{Owner: owner, Nonce: nonce, ExpiresAt: time.Now().Add(validity), CreatedAt: time.Now()}
	r.s.challenges[nonce] = c
	return &c, nil
}

func (r *fakeChallenges) Find(_ context.Context, nonce string) (*models.Challenge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.challenges[nonce]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &c, nil
}

func (r *fakeChallenges) Delete(_ context.Context, nonce string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.challenges, nonce)
	return nil
}

func (r *fakeChallenges) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, c := range r.s.challenges {
		if c.ExpiresAt.Before(now) {
			delete(r.s.challenges, k)
			n++
		}
	}
	return n, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type recordingArchiver struct {
	statements []*models.Statement
	err        error
}

func (a *recordingArchiver) Archive(_ context.Context, st *models.Statement) error {
	a.statements = append(a.statements, st)
	return a.err
}
