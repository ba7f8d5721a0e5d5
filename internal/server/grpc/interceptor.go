package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type ctxKey string

const accountKey ctxKey = "account"

var protectedMethods = map[string]struct{}{
	pb.AuthService_Logout_FullMethodName:         {},
	pb.AuthService_ChangePassword_FullMethodName: {},
	pb.AuthService_CurrentUser_FullMethodName:    {},
}

// accessTokenInterceptor authenticates protected methods using the
// access_token metadata entry and stores the account in the context.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if _, ok := protectedMethods[info.FullMethod]; !ok {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}

	account, err := s.authn.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, toStatus(err)
	}

	return handler(context.WithValue(ctx, accountKey, account), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "rpc",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start))
	return resp, err
}

// accountFromContext returns the account stored by accessTokenInterceptor.
func accountFromContext(ctx context.Context) (*models.AccountView, bool) {
	a, ok := ctx.Value(accountKey).(*models.AccountView)
	return a, ok && a != nil
}
