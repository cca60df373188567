package grpc

import (
	"context"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/logging"
	"github.com/dmitrijs2005/alarmlock/internal/server/models"
	"github.com/dmitrijs2005/alarmlock/internal/server/services"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

var testProgram = address.Address{0xaa}

func ownerAddr(b byte) address.Address {
	return address.Address{b, 0x01}
}

type fakeVaults struct {
	receipt *services.Receipt
	state   *services.VaultState
	history []models.Event
	balance uint64
	err     error

	gotCaller address.Address
	gotReq    services.VaultRequest
	gotAmount uint64
	gotUnlock int64
	gotAddr   address.Address
	calls     []string
}

func (f *fakeVaults) Program() address.Address { return testProgram }

func (f *fakeVaults) DeriveAddresses(owner address.Address) address.Pair {
	return address.ForOwner(testProgram, owner)
}

func (f *fakeVaults) Initialize(ctx context.Context, caller address.Address, req services.VaultRequest, unlockTime int64) (*services.Receipt, error) {
	f.calls = append(f.calls, "Initialize")
	f.gotCaller, f.gotReq, f.gotUnlock = caller, req, unlockTime
	return f.receipt, f.err
}

func (f *fakeVaults) Deposit(ctx context.Context, caller address.Address, req services.VaultRequest, amount uint64) (*services.Receipt, error) {
	f.calls = append(f.calls, "Deposit")
	f.gotCaller, f.gotReq, f.gotAmount = caller, req, amount
	return f.receipt, f.err
}

func (f *fakeVaults) Withdraw(ctx context.Context, caller address.Address, req services.VaultRequest) (*services.Receipt, error) {
	f.calls = append(f.calls, "Withdraw")
	f.gotCaller, f.gotReq = caller, req
	return f.receipt, f.err
}

func (f *fakeVaults) Close(ctx context.Context, caller address.Address, req services.VaultRequest) (*services.Receipt, error) {
	f.calls = append(f.calls, "Close")
	f.gotCaller, f.gotReq = caller, req
	return f.receipt, f.err
}

func (f *fakeVaults) VaultHistory(ctx context.Context, addr address.Address) (*services.VaultState, []models.Event, error) {
	f.calls = append(f.calls, "VaultHistory")
	f.gotAddr = addr
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.state, f.history, nil
}

func (f *fakeVaults) GetBalance(ctx context.Context, addr address.Address) (uint64, error) {
	f.calls = append(f.calls, "GetBalance")
	f.gotAddr = addr
	return f.balance, f.err
}

func (f *fakeVaults) Airdrop(ctx context.Context, caller address.Address, amount uint64) (uint64, error) {
	f.calls = append(f.calls, "Airdrop")
	f.gotCaller, f.gotAmount = caller, amount
	return f.balance, f.err
}

type fakeAuth struct {
	nonce    string
	token    string
	err      error
	gotOwner address.Address
	gotSig   []byte
}

func (f *fakeAuth) Challenge(ctx context.Context, owner address.Address) (string, error) {
	f.gotOwner = owner
	return f.nonce, f.err
}

func (f *fakeAuth) Login(ctx context.Context, owner address.Address, nonce string, signature []byte) (string, error) {
	f.gotOwner, f.gotSig = owner, signature
	return f.token, f.err
}

func newServer(v *fakeVaults, a *fakeAuth) *GRPCServer {
	return &GRPCServer{
		address:   "127.0.0.1:0",
		vaults:    v,
		auth:      a,
		logger:    nopLogger{},
		jwtSecret: []byte("k"),
	}
}
