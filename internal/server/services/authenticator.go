package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Authenticator resolves an access token to the account it was issued for.
// It is stateless: nothing is written and refresh-token rotation does not
// affect access tokens already handed out.
type Authenticator struct {
	creds  *CredentialStore
	issuer TokenIssuer
}

func NewAuthenticator(creds *CredentialStore, issuer TokenIssuer) *Authenticator {
	return &Authenticator{creds: creds, issuer: issuer}
}

// Authenticate returns ErrorUnauthorized for a missing, invalid or expired
// token and for an account that no longer exists. When the token has
// expired the returned error also matches common.ErrTokenExpired so a
// transport can tell the caller to refresh.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*models.AccountView, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: unauthorized request", common.ErrorUnauthorized)
	}

	claims, err := a.issuer.ParseAccessToken(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: invalid access token", common.ErrorUnauthorized)
	}

	account, err := a.creds.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: invalid access token", common.ErrorUnauthorized)
		}
		return nil, err
	}

	return account.View(), nil
}
