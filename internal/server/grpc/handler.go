package grpc

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	view, err := s.sessions.Register(ctx,
		pb.GetString(req, pb.KeyEmail),
		pb.GetString(req, pb.KeyFullName),
		pb.GetString(req, pb.KeyPassword))
	if err != nil {
		return nil, toStatus(err)
	}

	return withUser(pb.Strings(map[string]string{pb.KeyMessage: "user registered successfully"}), view), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.sessions.Login(ctx, pb.GetString(req, pb.KeyEmail), pb.GetString(req, pb.KeyPassword))
	if err != nil {
		return nil, toStatus(err)
	}

	return withUser(tokens(res.Tokens), res.User), nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	pair, err := s.sessions.Refresh(ctx, pb.GetString(req, pb.KeyRefreshToken))
	if err != nil {
		return nil, toStatus(err)
	}

	return tokens(*pair), nil
}

func (s *GRPCServer) Logout(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	account, err := requireAccount(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Logout(ctx, account.ID); err != nil {
		return nil, toStatus(err)
	}

	return pb.Strings(map[string]string{pb.KeyMessage: "user logged out"}), nil
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	account, err := requireAccount(ctx)
	if err != nil {
		return nil, err
	}

	err = s.sessions.ChangePassword(ctx, account.ID,
		pb.GetString(req, pb.KeyCurrentPassword),
		pb.GetString(req, pb.KeyNewPassword))
	if err != nil {
		return nil, toStatus(err)
	}

	return pb.Strings(map[string]string{pb.KeyMessage: "password changed successfully"}), nil
}

func (s *GRPCServer) CurrentUser(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	account, err := requireAccount(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.sessions.GetCurrentUser(ctx, account.ID)
	if err != nil {
		return nil, toStatus(err)
	}

	return withUser(pb.Strings(map[string]string{pb.KeyMessage: "current user fetched successfully"}), view), nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return pb.Strings(map[string]string{pb.KeyStatus: "OK"}), nil
}

// requireAccount guards against a handler being reached without the
// interceptor having run.
func requireAccount(ctx context.Context) (*models.AccountView, error) {
	account, ok := accountFromContext(ctx)
	if !ok {
		return nil, toStatus(fmt.Errorf("%w: unauthorized request", common.ErrorUnauthorized))
	}
	return account, nil
}

func tokens(p models.TokenPair) *structpb.Struct {
	return pb.Strings(map[string]string{
		pb.KeyAccessToken:  p.AccessToken,
		pb.KeyRefreshToken: p.RefreshToken,
	})
}

func withUser(s *structpb.Struct, v *models.AccountView) *structpb.Struct {
	s.Fields[pb.KeyUser] = pb.UserValue(pb.User{
		ID:        v.ID,
		Email:     v.Email,
		FullName:  v.FullName,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	})
	return s
}
