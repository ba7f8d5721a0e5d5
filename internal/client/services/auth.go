// Package services contains application services for the gophauth CLI.
// AuthService drives the session operations through the API client and
// keeps the current token pair in the local metadata table so a session
// survives restarts of the CLI.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
)

// Metadata keys of the persisted session.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyEmail        = "email"
)

// AuthService defines the session operations offered by the CLI.
//
// Password arguments are byte slices read from the terminal; the service
// wipes them once they have been sent.
type AuthService interface {
	Restore(ctx context.Context) (email string, err error)
	Register(ctx context.Context, email, fullName string, password []byte) (*pb.User, error)
	Login(ctx context.Context, email string, password []byte) (*pb.User, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	ChangePassword(ctx context.Context, current, next []byte) error
	CurrentUser(ctx context.Context) (*pb.User, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
}

// NewAuthService binds the service to an API client and the state database.
func NewAuthService(c client.Client, db *sql.DB) AuthService {
	return &authService{client: c, db: db}
}

func (a *authService) repo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

// Restore loads a previously saved token pair into the client. It returns
// the email of the saved session, or "" when there is none.
func (a *authService) Restore(ctx context.Context) (string, error) {
	m, err := a.repo().List(ctx)
	if err != nil {
		return "", err
	}
	if m[keyRefreshToken] == "" {
		return "", nil
	}

	a.client.SetTokens(m[keyAccessToken], m[keyRefreshToken])
	return m[keyEmail], nil
}

func (a *authService) Register(ctx context.Context, email, fullName string, password []byte) (*pb.User, error) {
	defer common.WipeByteArray(password)
	return a.client.Register(ctx, email, fullName, string(password))
}

func (a *authService) Login(ctx context.Context, email string, password []byte) (*pb.User, error) {
	defer common.WipeByteArray(password)

	u, err := a.client.Login(ctx, email, string(password))
	if err != nil {
		return nil, err
	}

	if u != nil && u.Email != "" {
		email = u.Email
	}
	if err := a.saveSession(ctx, email); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return u, nil
}

func (a *authService) Refresh(ctx context.Context) error {
	if err := a.client.Refresh(ctx); err != nil {
		return a.dropIfRejected(ctx, err)
	}
	return a.saveTokens(ctx)
}

// Logout always clears the saved session, even if the server could not be
// reached; the server-side token then simply expires.
func (a *authService) Logout(ctx context.Context) error {
	err := a.client.Logout(ctx)
	if cerr := a.repo().Delete(ctx, keyAccessToken, keyRefreshToken, keyEmail); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}

func (a *authService) ChangePassword(ctx context.Context, current, next []byte) error {
	defer common.WipeByteArray(current)
	defer common.WipeByteArray(next)

	err := a.client.ChangePassword(ctx, string(current), string(next))
	if serr := a.saveTokens(ctx); serr != nil && err == nil {
		err = serr
	}
	return err
}

func (a *authService) CurrentUser(ctx context.Context) (*pb.User, error) {
	u, err := a.client.CurrentUser(ctx)
	if err != nil {
		return nil, a.dropIfRejected(ctx, err)
	}
	return u, a.saveTokens(ctx)
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}

// saveSession stores the client's tokens together with the account email.
func (a *authService) saveSession(ctx context.Context, email string) error {
	access, refresh := a.client.Tokens()
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyAccessToken, access); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyRefreshToken, refresh); err != nil {
			return err
		}
		return repo.Set(ctx, keyEmail, email)
	})
}

// saveTokens writes the client's current pair if it differs from the saved
// one; a transparent refresh inside any call rotates it.
func (a *authService) saveTokens(ctx context.Context) error {
	access, refresh := a.client.Tokens()
	if refresh == "" {
		return nil
	}

	saved, err := a.repo().Get(ctx, keyRefreshToken)
	if err != nil {
		return err
	}
	if saved == refresh {
		return nil
	}

	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyAccessToken, access); err != nil {
			return err
		}
		return repo.Set(ctx, keyRefreshToken, refresh)
	})
}

// dropIfRejected forgets the saved session when the server no longer
// accepts it.
func (a *authService) dropIfRejected(ctx context.Context, err error) error {
	if !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	a.client.SetTokens("", "")
	if derr := a.repo().Delete(ctx, keyAccessToken, keyRefreshToken, keyEmail); derr != nil {
		return errors.Join(err, derr)
	}
	return err
}
