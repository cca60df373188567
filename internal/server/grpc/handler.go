package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/api"
	"github.com/dmitrijs2005/alarmlock/internal/common"
	"github.com/dmitrijs2005/alarmlock/internal/server/models"
	"github.com/dmitrijs2005/alarmlock/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

// codeByName maps custody error names to gRPC codes. The status message
// carries the name itself.
var codeByName = map[string]codes.Code{
	"Unauthorized":       codes.PermissionDenied,
	"AlreadyInitialized": codes.AlreadyExists,
	"VaultNotFound":      codes.NotFound,
	"RecordNotFound":     codes.NotFound,
	"VaultStillLocked":   codes.FailedPrecondition,
	"VaultNotEmpty":      codes.FailedPrecondition,
	"InsufficientFunds":  codes.FailedPrecondition,
	"AirdropDisabled":    codes.FailedPrecondition,
	"InvalidAmount":      codes.InvalidArgument,
	"AddressMismatch":    codes.InvalidArgument,
	"Overflow":           codes.InvalidArgument,
	"AirdropLimit":       codes.InvalidArgument,
}

func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	if name := common.Name(err); name != "" {
		if code, ok := codeByName[name]; ok {
			return status.Error(code, name)
		}
	}

	switch {
	case errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrChallengeExpired),
		errors.Is(err, common.ErrInvalidSignature):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	s.logger.Error(ctx, err.Error())
	return status.Error(codes.Internal, "internal error")
}

func parseAddress(field, s string) (address.Address, error) {
	a, err := address.Parse(s)
	if err != nil {
		return address.Address{}, status.Errorf(codes.InvalidArgument, "invalid %s address", field)
	}
	return a, nil
}

func parseRef(ref api.VaultRef) (services.VaultRequest, error) {
	owner, err := parseAddress("owner", ref.Owner)
	if err != nil {
		return services.VaultRequest{}, err
	}
	vault, err := parseAddress("vault", ref.Vault)
	if err != nil {
		return services.VaultRequest{}, err
	}
	holding, err := parseAddress("holding", ref.Holding)
	if err != nil {
		return services.VaultRequest{}, err
	}
	return services.VaultRequest{Owner: owner, Addresses: address.Pair{Vault: vault, Holding: holding}}, nil
}

func caller(ctx context.Context) (address.Address, error) {
	owner, ok := ownerFromContext(ctx)
	if !ok {
		return address.Address{}, status.Error(codes.Unauthenticated, "missing token")
	}
	return owner, nil
}

func toVault(v models.Vault, balance uint64, unlockable bool) *api.Vault {
	return &api.Vault{
		Address:     v.Address.String(),
		Owner:       v.Owner.String(),
		Holding:     v.Holding.String(),
		UnlockTime:  v.UnlockTime,
		Initialized: v.Initialized,
		Deposit:     v.Deposit,
		LifecycleID: v.LifecycleID,
		Balance:     balance,
		Unlockable:  unlockable,
	}
}

func toEvent(e models.Event) api.Event {
	return api.Event{
		ID:          e.ID,
		Seq:         e.Seq,
		Kind:        string(e.Kind),
		Vault:       e.Vault.String(),
		LifecycleID: e.LifecycleID,
		Owner:       e.Owner.String(),
		Amount:      e.Amount,
		UnlockTime:  e.UnlockTime,
		Timestamp:   e.Timestamp,
	}
}

func toOperationResponse(r *services.Receipt) *api.OperationResponse {
	resp := &api.OperationResponse{
		Holding:      r.Holding,
		OwnerBalance: r.OwnerBalance,
		Event:        toEvent(r.Event),
	}
	if r.Vault != nil {
		resp.Vault = toVault(*r.Vault, r.Holding, false)
		resp.Vault.Unlockable = r.Event.Timestamp >= r.Vault.UnlockTime
	}
	return resp
}

func (s *GRPCServer) Ping(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) GetChallenge(ctx context.Context, req *api.ChallengeRequest) (*api.ChallengeResponse, error) {
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		return nil, err
	}

	nonce, err := s.auth.Challenge(ctx, owner)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &api.ChallengeResponse{Nonce: nonce, Message: string(services.LoginMessage(nonce))}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		return nil, err
	}

	token, err := s.auth.Login(ctx, owner, req.Nonce, req.Signature)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Logged in", "owner", owner.String())
	return &api.LoginResponse{AccessToken: token}, nil
}

func (s *GRPCServer) DeriveAddresses(ctx context.Context, req *api.DeriveAddressesRequest) (*api.DeriveAddressesResponse, error) {
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		return nil, err
	}

	pair := s.vaults.DeriveAddresses(owner)
	return &api.DeriveAddressesResponse{
		Program: s.vaults.Program().String(),
		Vault:   pair.Vault.String(),
		Holding: pair.Holding.String(),
	}, nil
}

func (s *GRPCServer) Initialize(ctx context.Context, req *api.InitializeRequest) (*api.OperationResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	vr, err := parseRef(req.VaultRef)
	if err != nil {
		return nil, err
	}

	r, err := s.vaults.Initialize(ctx, who, vr, req.UnlockTime)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toOperationResponse(r), nil
}

func (s *GRPCServer) Deposit(ctx context.Context, req *api.DepositRequest) (*api.OperationResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	vr, err := parseRef(req.VaultRef)
	if err != nil {
		return nil, err
	}

	r, err := s.vaults.Deposit(ctx, who, vr, req.Amount)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toOperationResponse(r), nil
}

func (s *GRPCServer) Withdraw(ctx context.Context, req *api.WithdrawRequest) (*api.OperationResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	vr, err := parseRef(req.VaultRef)
	if err != nil {
		return nil, err
	}

	r, err := s.vaults.Withdraw(ctx, who, vr)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toOperationResponse(r), nil
}

func (s *GRPCServer) CloseVault(ctx context.Context, req *api.CloseVaultRequest) (*api.OperationResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	vr, err := parseRef(req.VaultRef)
	if err != nil {
		return nil, err
	}

	r, err := s.vaults.Close(ctx, who, vr)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toOperationResponse(r), nil
}

func (s *GRPCServer) GetVault(ctx context.Context, req *api.GetVaultRequest) (*api.GetVaultResponse, error) {
	addr, err := parseAddress("vault", req.Address)
	if err != nil {
		return nil, err
	}

	st, history, err := s.vaults.VaultHistory(ctx, addr)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	resp := &api.GetVaultResponse{Vault: *toVault(st.Vault, st.Balance, st.Unlockable)}
	for _, e := range history {
		resp.Events = append(resp.Events, toEvent(e))
	}
	return resp, nil
}

func (s *GRPCServer) GetBalance(ctx context.Context, req *api.GetBalanceRequest) (*api.BalanceResponse, error) {
	addr, err := parseAddress("account", req.Address)
	if err != nil {
		return nil, err
	}

	balance, err := s.vaults.GetBalance(ctx, addr)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.BalanceResponse{Address: addr.String(), Balance: balance}, nil
}

func (s *GRPCServer) Airdrop(ctx context.Context, req *api.AirdropRequest) (*api.BalanceResponse, error) {
	who, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	balance, err := s.vaults.Airdrop(ctx, who, req.Amount)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.BalanceResponse{Address: who.String(), Balance: balance}, nil
}
