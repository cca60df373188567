// Package api defines the gRPC contract of the vault service: message types,
// the service descriptor, and a typed client. Messages are plain structs
// carried by a JSON codec registered under CodecName.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

const ServiceName = "alarmlock.v1.VaultService"

const (
	MethodPing            = "/" + ServiceName + "/Ping"
	MethodGetChallenge    = "/" + ServiceName + "/GetChallenge"
	MethodLogin           = "/" + ServiceName + "/Login"
	MethodDeriveAddresses = "/" + ServiceName + "/DeriveAddresses"
	MethodInitialize      = "/" + ServiceName + "/Initialize"
	MethodDeposit         = "/" + ServiceName + "/Deposit"
	MethodWithdraw        = "/" + ServiceName + "/Withdraw"
	MethodCloseVault      = "/" + ServiceName + "/CloseVault"
	MethodGetVault        = "/" + ServiceName + "/GetVault"
	MethodGetBalance      = "/" + ServiceName + "/GetBalance"
	MethodAirdrop         = "/" + ServiceName + "/Airdrop"
)

type VaultServiceServer interface {
	Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	GetChallenge(context.Context, *ChallengeRequest) (*ChallengeResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	DeriveAddresses(context.Context, *DeriveAddressesRequest) (*DeriveAddressesResponse, error)
	Initialize(context.Context, *InitializeRequest) (*OperationResponse, error)
	Deposit(context.Context, *DepositRequest) (*OperationResponse, error)
	Withdraw(context.Context, *WithdrawRequest) (*OperationResponse, error)
	CloseVault(context.Context, *CloseVaultRequest) (*OperationResponse, error)
	GetVault(context.Context, *GetVaultRequest) (*GetVaultResponse, error)
	GetBalance(context.Context, *GetBalanceRequest) (*BalanceResponse, error)
	Airdrop(context.Context, *AirdropRequest) (*BalanceResponse, error)
}

// UnimplementedVaultServiceServer answers every method with codes.Unimplemented.
type UnimplementedVaultServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedVaultServiceServer) Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, unimplemented("Ping")
}
func (UnimplementedVaultServiceServer) GetChallenge(context.Context, *ChallengeRequest) (*ChallengeResponse, error) {
	return nil, unimplemented("GetChallenge")
}
func (UnimplementedVaultServiceServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, unimplemented("Login")
}
func (UnimplementedVaultServiceServer) DeriveAddresses(context.Context, *DeriveAddressesRequest) (*DeriveAddressesResponse, error) {
	return nil, unimplemented("DeriveAddresses")
}
func (UnimplementedVaultServiceServer) Initialize(context.Context, *InitializeRequest) (*OperationResponse, error) {
	return nil, unimplemented("Initialize")
}
func (UnimplementedVaultServiceServer) Deposit(context.Context, *DepositRequest) (*OperationResponse, error) {
	return nil, unimplemented("Deposit")
}
func (UnimplementedVaultServiceServer) Withdraw(context.Context, *WithdrawRequest) (*OperationResponse, error) {
	return nil, unimplemented("Withdraw")
}
func (UnimplementedVaultServiceServer) CloseVault(context.Context, *CloseVaultRequest) (*OperationResponse, error) {
	return nil, unimplemented("CloseVault")
}
func (UnimplementedVaultServiceServer) GetVault(context.Context, *GetVaultRequest) (*GetVaultResponse, error) {
	return nil, unimplemented("GetVault")
}
func (UnimplementedVaultServiceServer) GetBalance(context.Context, *GetBalanceRequest) (*BalanceResponse, error) {
	return nil, unimplemented("GetBalance")
}
func (UnimplementedVaultServiceServer) Airdrop(context.Context, *AirdropRequest) (*BalanceResponse, error) {
	return nil, unimplemented("Airdrop")
}

// unary builds the method descriptor of one unary call.
func unary[Req, Resp any](name string, call func(VaultServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(VaultServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(VaultServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var VaultServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VaultServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", VaultServiceServer.Ping),
		unary("GetChallenge", VaultServiceServer.GetChallenge),
		unary("Login", VaultServiceServer.Login),
		unary("DeriveAddresses", VaultServiceServer.DeriveAddresses),
		unary("Initialize", VaultServiceServer.Initialize),
		unary("Deposit", VaultServiceServer.Deposit),
		unary("Withdraw", VaultServiceServer.Withdraw),
		unary("CloseVault", VaultServiceServer.CloseVault),
		unary("GetVault", VaultServiceServer.GetVault),
		unary("GetBalance", VaultServiceServer.GetBalance),
		unary("Airdrop", VaultServiceServer.Airdrop),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alarmlock/v1/vault.json",
}

func RegisterVaultServiceServer(s grpc.ServiceRegistrar, srv VaultServiceServer) {
	s.RegisterService(&VaultServiceDesc, srv)
}
