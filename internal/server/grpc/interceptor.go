package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/api"
	"github.com/dmitrijs2005/alarmlock/internal/common"
	"github.com/dmitrijs2005/alarmlock/internal/logging"
	"github.com/dmitrijs2005/alarmlock/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const ownerKey ctxKey = "owner"

// authenticated lists the methods that act for a signed-in owner.
var authenticated = map[string]bool{
	api.MethodInitialize: true,
	api.MethodDeposit:    true,
	api.MethodWithdraw:   true,
	api.MethodCloseVault: true,
	api.MethodAirdrop:    true,
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if authenticated[info.FullMethod] {

		var accessToken string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(common.AccessTokenHeaderName)
			if len(values) > 0 {
				accessToken = values[0]
			}
		}
		if len(accessToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		owner, err := auth.OwnerFromToken(accessToken, s.jwtSecret)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		ctx = context.WithValue(ctx, ownerKey, owner)
		ctx = logging.WithFields(ctx, "owner", owner.String())

	}

	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	ctx = logging.WithFields(ctx, "method", info.FullMethod)
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "rpc", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start))
	return resp, err
}

// ownerFromContext returns the owner authenticated by the interceptor.
func ownerFromContext(ctx context.Context) (address.Address, bool) {
	owner, ok := ctx.Value(ownerKey).(address.Address)
	return owner, ok && !owner.IsZero()
}
