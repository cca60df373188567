package client

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/api"
	"github.com/dmitrijs2005/alarmlock/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

// Client is the vault API as the CLI sees it.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Login(ctx context.Context, key ed25519.PrivateKey) error
	Addresses(ctx context.Context, owner address.Address) (*Addresses, error)
	Initialize(ctx context.Context, a *Addresses, unlockTime int64) (*api.OperationResponse, error)
	Deposit(ctx context.Context, a *Addresses, amount uint64) (*api.OperationResponse, error)
	Withdraw(ctx context.Context, a *Addresses) (*api.OperationResponse, error)
	CloseVault(ctx context.Context, a *Addresses) (*api.OperationResponse, error)
	GetVault(ctx context.Context, vault address.Address) (*api.GetVaultResponse, error)
	GetBalance(ctx context.Context, addr address.Address) (uint64, error)
	Airdrop(ctx context.Context, amount uint64) (uint64, error)
}

// Addresses are the program identity and the derived addresses of one owner.
type Addresses struct {
	Program address.Address
	Owner   address.Address
	Vault   address.Address
	Holding address.Address
}

func (a *Addresses) ref() api.VaultRef {
	return api.VaultRef{Owner: a.Owner.String(), Vault: a.Vault.String(), Holding: a.Holding.String()}
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      api.VaultServiceClient

	mu          sync.Mutex
	accessToken string
	key         ed25519.PrivateKey
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) token() (string, ed25519.PrivateKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.key
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	token, key := s.token()
	if token != "" {
		ctx = withAccessToken(ctx, token)
	}

	err := invoker(ctx, method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if key == nil {
		return err
	}

	// token expired, signing in again with the same key
	if err := s.Login(ctx, key); err != nil {
		return err
	}
	token, _ = s.token()
	return invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
}

func NewGRPCClient(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {

	conn, err := grpc.NewClient(s.endpointURL, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithUnaryInterceptor(s.accessTokenInterceptor))
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = api.NewVaultServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	if _, err := s.client.Ping(ctx, &emptypb.Empty{}); err != nil {
		return s.mapError(err)
	}
	return nil
}

// Login proves ownership of key and keeps the issued access token. The key
// is retained so an expired token can be renewed without prompting.
func (s *GRPCClient) Login(ctx context.Context, key ed25519.PrivateKey) error {
	owner, err := address.FromPublicKey(key.Public().(ed25519.PublicKey))
	if err != nil {
		return err
	}

	ch, err := s.client.GetChallenge(ctx, &api.ChallengeRequest{Owner: owner.String()})
	if err != nil {
		return s.mapError(err)
	}

	sig := ed25519.Sign(key, []byte(common.LoginMessagePrefix+ch.Nonce))

	resp, err := s.client.Login(ctx, &api.LoginRequest{Owner: owner.String(), Nonce: ch.Nonce, Signature: sig})
	if err != nil {
		return s.mapError(err)
	}

	s.mu.Lock()
	s.accessToken = resp.AccessToken
	s.key = key
	s.mu.Unlock()
	return nil
}

// Addresses asks the server for owner's addresses and checks them against
// a local derivation under the returned program identity.
func (s *GRPCClient) Addresses(ctx context.Context, owner address.Address) (*Addresses, error) {
	resp, err := s.client.DeriveAddresses(ctx, &api.DeriveAddressesRequest{Owner: owner.String()})
	if err != nil {
		return nil, s.mapError(err)
	}

	program, err := address.Parse(resp.Program)
	if err != nil {
		return nil, fmt.Errorf("server program id: %w", err)
	}

	pair := address.ForOwner(program, owner)
	if pair.Vault.String() != resp.Vault || pair.Holding.String() != resp.Holding {
		return nil, common.ErrAddressMismatch
	}

	return &Addresses{Program: program, Owner: owner, Vault: pair.Vault, Holding: pair.Holding}, nil
}

func (s *GRPCClient) Initialize(ctx context.Context, a *Addresses, unlockTime int64) (*api.OperationResponse, error) {
	resp, err := s.client.Initialize(ctx, &api.InitializeRequest{VaultRef: a.ref(), UnlockTime: unlockTime})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Deposit(ctx context.Context, a *Addresses, amount uint64) (*api.OperationResponse, error) {
	resp, err := s.client.Deposit(ctx, &api.DepositRequest{VaultRef: a.ref(), Amount: amount})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Withdraw(ctx context.Context, a *Addresses) (*api.OperationResponse, error) {
	resp, err := s.client.Withdraw(ctx, &api.WithdrawRequest{VaultRef: a.ref()})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) CloseVault(ctx context.Context, a *Addresses) (*api.OperationResponse, error) {
	resp, err := s.client.CloseVault(ctx, &api.CloseVaultRequest{VaultRef: a.ref()})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) GetVault(ctx context.Context, vault address.Address) (*api.GetVaultResponse, error) {
	resp, err := s.client.GetVault(ctx, &api.GetVaultRequest{Address: vault.String()})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) GetBalance(ctx context.Context, addr address.Address) (uint64, error) {
	resp, err := s.client.GetBalance(ctx, &api.GetBalanceRequest{Address: addr.String()})
	if err != nil {
		return 0, s.mapError(err)
	}
	return resp.Balance, nil
}

func (s *GRPCClient) Airdrop(ctx context.Context, amount uint64) (uint64, error) {
	resp, err := s.client.Airdrop(ctx, &api.AirdropRequest{Amount: amount})
	if err != nil {
		return 0, s.mapError(err)
	}
	return resp.Balance, nil
}

// mapError turns a status error into the custody error named by its
// message, or into a transport sentinel.
func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	if e, ok := common.FromName(st.Message()); ok {
		return e
	}
	switch st.Code() {
	case codes.Unauthenticated:
		if _, key := s.token(); key == nil && st.Message() == "missing token" {
			return ErrNotLoggedIn
		}
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
