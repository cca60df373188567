// Package services contains server-side business logic. This file implements
// VaultService, which runs the custody state machine against the database:
// every mutating operation is one transaction that locks the rows it reads,
// plans with custody.Plan and only then applies the planned effects.
package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/common"
	"github.com/dmitrijs2005/alarmlock/internal/dbx"
	"github.com/dmitrijs2005/alarmlock/internal/logging"
	"github.com/dmitrijs2005/alarmlock/internal/server/archive"
	"github.com/dmitrijs2005/alarmlock/internal/server/config"
	"github.com/dmitrijs2005/alarmlock/internal/server/custody"
	"github.com/dmitrijs2005/alarmlock/internal/server/events"
	"github.com/dmitrijs2005/alarmlock/internal/server/models"
	"github.com/dmitrijs2005/alarmlock/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/alarmlock/internal/server/repositories/repomanager"
)

// VaultRequest addresses one owner's vault. Addresses must be the pair
// derived for Owner.
type VaultRequest struct {
	Owner     address.Address
	Addresses address.Pair
}

// Receipt is the committed outcome of a mutating operation.
type Receipt struct {
	// Vault is the record after the operation; nil once closed.
	Vault        *models.Vault
	Addresses    address.Pair
	Holding      uint64
	OwnerBalance uint64
	Event        models.Event
}

// VaultState is the read view of a live vault.
type VaultState struct {
	Vault      models.Vault
	Balance    uint64
	Unlockable bool
}

type VaultService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	params         custody.Params
	airdropEnabled bool
	airdropLimit   uint64
	publisher      events.Publisher
	archiver       archive.Archiver
	logger         logging.Logger
	now            func() time.Time
	// afterCommit bounds publishing and archiving once an operation has
	// committed.
	afterCommit time.Duration
}

const afterCommitTimeout = 5 * time.Second

// NewVaultService constructs a VaultService. The program identity and
// custody parameters come from cfg.
func NewVaultService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	publisher events.Publisher, archiver archive.Archiver, logger logging.Logger) (*VaultService, error) {
	program, err := cfg.Program()
	if err != nil {
		return nil, fmt.Errorf("program id: %w", err)
	}

	return &VaultService{
		db:          db,
		repomanager: m,
		params: custody.Params{
			Program:       program,
			RecordDeposit: cfg.RecordDeposit,
		},
		airdropEnabled: cfg.AirdropEnabled,
		airdropLimit:   cfg.AirdropLimit,
		publisher:      publisher,
		archiver:       archiver,
		logger:         logger,
		now:            time.Now,
		afterCommit:    afterCommitTimeout,
	}, nil
}

// Program returns the identity addresses are derived under.
func (s *VaultService) Program() address.Address { return s.params.Program }

// DeriveAddresses returns the vault and holding addresses of owner.
func (s *VaultService) DeriveAddresses(owner address.Address) address.Pair {
	return address.ForOwner(s.params.Program, owner)
}

// Initialize creates owner's vault record and holding account.
func (s *VaultService) Initialize(ctx context.Context, caller address.Address, req VaultRequest, unlockTime int64) (*Receipt, error) {
	return s.execute(ctx, custody.Request{
		Op: custody.OpInitialize, Caller: caller, Owner: req.Owner, Addresses: req.Addresses,
		UnlockTime: unlockTime,
	})
}

// Deposit moves amount from the owner's balance into the holding account.
func (s *VaultService) Deposit(ctx context.Context, caller address.Address, req VaultRequest, amount uint64) (*Receipt, error) {
	return s.execute(ctx, custody.Request{
		Op: custody.OpDeposit, Caller: caller, Owner: req.Owner, Addresses: req.Addresses,
		Amount: amount,
	})
}

// Withdraw moves the entire holding balance back to the owner.
func (s *VaultService) Withdraw(ctx context.Context, caller address.Address, req VaultRequest) (*Receipt, error) {
	return s.execute(ctx, custody.Request{
		Op: custody.OpWithdraw, Caller: caller, Owner: req.Owner, Addresses: req.Addresses,
	})
}

// Close removes an empty vault and returns its storage deposit to the owner.
func (s *VaultService) Close(ctx context.Context, caller address.Address, req VaultRequest) (*Receipt, error) {
	return s.execute(ctx, custody.Request{
		Op: custody.OpClose, Caller: caller, Owner: req.Owner, Addresses: req.Addresses,
	})
}

func (s *VaultService) execute(ctx context.Context, req custody.Request) (*Receipt, error) {
	// Reject foreign addresses before any row is locked.
	if err := address.Verify(s.params.Program, req.Owner, req.Addresses); err != nil {
		return nil, err
	}

	var (
		receipt *Receipt
		closed  *models.Vault
	)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		vaults := s.repomanager.Vaults(tx)
		accts := s.repomanager.Accounts(tx)

		record, err := vaults.GetForUpdate(ctx, req.Addresses.Vault)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		balances, err := lockBalances(ctx, accts, req.Owner, req.Addresses.Vault, req.Addresses.Holding)
		if err != nil {
			return err
		}

		snap := custody.Snapshot{
			Record:      record,
			Holding:     balances[req.Addresses.Holding],
			OwnerFunds:  balances[req.Owner],
			RecordFunds: balances[req.Addresses.Vault],
			Now:         s.now(),
		}

		eff, err := custody.Plan(req, snap, s.params)
		if err != nil {
			return err
		}

		if err := s.apply(ctx, tx, eff); err != nil {
			return err
		}

		receipt = &Receipt{Vault: record, Addresses: req.Addresses, Event: eff.Event}
		if eff.Create != nil {
			receipt.Vault = eff.Create
		}
		if eff.Delete != nil {
			closed, receipt.Vault = record, nil
		}
		if receipt.Holding, err = accts.Balance(ctx, req.Addresses.Holding); err != nil {
			return err
		}
		if receipt.OwnerBalance, err = accts.Balance(ctx, req.Owner); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "vault operation committed",
		"op", req.Op.String(),
		"vault", req.Addresses.Vault.String(),
		"event", receipt.Event.ID,
	)

	// The operation is committed: a caller that gives up now must not cut
	// the publish short, and a stuck broker must not hold the reply.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.afterCommit)
	defer cancel()

	s.publish(pctx, receipt.Event)
	if closed != nil {
		s.archive(pctx, closed)
	}

	return receipt, nil
}

// lockBalances reads and row-locks the given accounts in address order, so
// two transactions touching the same accounts always lock them alike.
func lockBalances(ctx context.Context, repo accounts.Repository, addrs ...address.Address) (map[address.Address]uint64, error) {
	sorted := append([]address.Address(nil), addrs...)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i][:], sorted[j][:]) < 0 })

	out := make(map[address.Address]uint64, len(sorted))
	for _, a := range sorted {
		if _, seen := out[a]; seen {
			continue
		}
		b, err := repo.BalanceForUpdate(ctx, a)
		if err != nil {
			return nil, err
		}
		out[a] = b
	}
	return out, nil
}

func (s *VaultService) apply(ctx context.Context, tx dbx.DBTX, eff *custody.Effects) error {
	vaults := s.repomanager.Vaults(tx)
	accts := s.repomanager.Accounts(tx)

	if eff.Create != nil {
		if err := vaults.Create(ctx, eff.Create); err != nil {
			return err
		}
	}
	for _, a := range eff.Open {
		if err := accts.Open(ctx, a); err != nil {
			return err
		}
	}
	for _, t := range eff.Transfers {
		if _, err := accts.Debit(ctx, t.From, t.Amount); err != nil {
			return err
		}
		if _, err := accts.Credit(ctx, t.To, t.Amount); err != nil {
			return err
		}
	}
	if eff.Delete != nil {
		if err := vaults.Delete(ctx, *eff.Delete); err != nil {
			return err
		}
	}
	for _, a := range eff.Remove {
		if err := accts.Remove(ctx, a); err != nil {
			return err
		}
	}

	return s.repomanager.Events(tx).Append(ctx, &eff.Event)
}

func (s *VaultService) publish(ctx context.Context, e models.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn(ctx, "event publish failed", "event", e.ID, "error", err)
	}
}

func (s *VaultService) archive(ctx context.Context, v *models.Vault) {
	history, err := s.repomanager.Events(s.db).ListByLifecycle(ctx, v.LifecycleID)
	if err != nil {
		s.logger.Warn(ctx, "statement history unavailable", "vault", v.Address.String(), "error", err)
		return
	}

	st := &models.Statement{
		Vault:       v.Address,
		Owner:       v.Owner,
		Holding:     v.Holding,
		LifecycleID: v.LifecycleID,
		UnlockTime:  v.UnlockTime,
		Events:      history,
		ClosedAt:    s.now().UTC(),
	}
	if err := s.archiver.Archive(ctx, st); err != nil {
		s.logger.Warn(ctx, "statement archive failed", "vault", v.Address.String(), "error", err)
	}
}

// GetVault returns the committed state of the vault at addr, or
// common.ErrRecordNotFound when no live record exists there.
func (s *VaultService) GetVault(ctx context.Context, addr address.Address) (*VaultState, error) {
	v, err := s.repomanager.Vaults(s.db).Get(ctx, addr)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrRecordNotFound
		}
		return nil, err
	}

	balance, err := s.repomanager.Accounts(s.db).Balance(ctx, v.Holding)
	if err != nil {
		return nil, err
	}

	return &VaultState{Vault: *v, Balance: balance, Unlockable: !v.Locked(s.now())}, nil
}

// GetBalance returns the committed balance at addr; unknown accounts are empty.
func (s *VaultService) GetBalance(ctx context.Context, addr address.Address) (uint64, error) {
	return s.repomanager.Accounts(s.db).Balance(ctx, addr)
}

// History returns the events of the live lifecycle of the vault at addr.
func (s *VaultService) History(ctx context.Context, addr address.Address) ([]models.Event, error) {
	_, history, err := s.VaultHistory(ctx, addr)
	return history, err
}

// VaultHistory returns the vault state together with the events of that
// same lifecycle. Events are selected by the lifecycle id of the record that
// was read, so a Close and re-Initialize racing the read can never pair one
// lifecycle's record with another's events.
func (s *VaultService) VaultHistory(ctx context.Context, addr address.Address) (*VaultState, []models.Event, error) {
	st, err := s.GetVault(ctx, addr)
	if err != nil {
		return nil, nil, err
	}
	history, err := s.repomanager.Events(s.db).ListByLifecycle(ctx, st.Vault.LifecycleID)
	if err != nil {
		return nil, nil, err
	}
	return st, history, nil
}

// Airdrop credits amount to the caller's own personal account. It exists for
// development networks and is off unless configured.
func (s *VaultService) Airdrop(ctx context.Context, caller address.Address, amount uint64) (uint64, error) {
	if !s.airdropEnabled {
		return 0, common.ErrAirdropDisabled
	}
	if caller.IsZero() {
		return 0, common.ErrUnauthorized
	}
	if amount == 0 {
		return 0, common.ErrInvalidAmount
	}
	if amount > s.airdropLimit {
		return 0, common.ErrAirdropLimit
	}

	var balance uint64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accts := s.repomanager.Accounts(tx)
		current, err := accts.BalanceForUpdate(ctx, caller)
		if err != nil {
			return err
		}
		if amount > custody.MaxBalance-current {
			return common.ErrOverflow
		}
		balance, err = accts.Credit(ctx, caller, amount)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info(ctx, "airdrop", "account", caller.String(), "amount", amount)
	return balance, nil
}
