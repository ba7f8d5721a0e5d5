package client

import (
	"context"

	pb "github.com/dmitrijs2005/gophauth/internal/proto"
)

// Client is the CLI's view of the auth service.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Register(ctx context.Context, email, fullName, password string) (*pb.User, error)
	Login(ctx context.Context, email, password string) (*pb.User, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	ChangePassword(ctx context.Context, current, next string) error
	CurrentUser(ctx context.Context) (*pb.User, error)

	// Tokens returns the token pair currently held by the client.
	Tokens() (access, refresh string)
	// SetTokens replaces the held token pair, e.g. with one restored from disk.
	SetTokens(access, refresh string)
}
