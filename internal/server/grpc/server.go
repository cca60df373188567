// Package grpc exposes the vault and auth services over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/api"
	"github.com/dmitrijs2005/alarmlock/internal/logging"
	"github.com/dmitrijs2005/alarmlock/internal/server/models"
	"github.com/dmitrijs2005/alarmlock/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type vaultSvc interface {
	Program() address.Address
	DeriveAddresses(owner address.Address) address.Pair
	Initialize(ctx context.Context, caller address.Address, req services.VaultRequest, unlockTime int64) (*services.Receipt, error)
	Deposit(ctx context.Context, caller address.Address, req services.VaultRequest, amount uint64) (*services.Receipt, error)
	Withdraw(ctx context.Context, caller address.Address, req services.VaultRequest) (*services.Receipt, error)
	Close(ctx context.Context, caller address.Address, req services.VaultRequest) (*services.Receipt, error)
	VaultHistory(ctx context.Context, addr address.Address) (*services.VaultState, []models.Event, error)
	GetBalance(ctx context.Context, addr address.Address) (uint64, error)
	Airdrop(ctx context.Context, caller address.Address, amount uint64) (uint64, error)
}

type authSvc interface {
	Challenge(ctx context.Context, owner address.Address) (string, error)
	Login(ctx context.Context, owner address.Address, nonce string, signature []byte) (string, error)
}

type GRPCServer struct {
	api.UnimplementedVaultServiceServer
	address   string
	vaults    vaultSvc
	auth      authSvc
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, vs vaultSvc, as authSvc, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		vaults:    vs,
		auth:      as,
		jwtSecret: []byte(secretKey),
	}
}

// newServer builds the gRPC server with the vault service and the standard
// health service registered.
func (s *GRPCServer) newServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))

	api.RegisterVaultServiceServer(srv, s)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)

	return srv, hs
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv, hs := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
