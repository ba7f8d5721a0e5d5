// Package auth mints and verifies the HS256 JSON Web Tokens used for
// sessions. Access and refresh tokens are signed with different secrets so
// one can never be accepted in place of the other.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Claims carries the registered claims plus the account identity. Email and
// FullName are only set on access tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// Issuer signs and verifies tokens with the configured secrets and lifetimes.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	now func() time.Time
}

func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// IssueAccessToken mints a short-lived token describing the account.
func (i *Issuer) IssueAccessToken(a *models.Account) (string, error) {
	c := i.claims(a.ID, i.accessTTL)
	c.Email = a.Email
	c.FullName = a.FullName
	return sign(c, i.accessSecret)
}

// IssueRefreshToken mints a long-lived token carrying only the account id.
func (i *Issuer) IssueRefreshToken(a *models.Account) (string, error) {
	return sign(i.claims(a.ID, i.refreshTTL), i.refreshSecret)
}

func (i *Issuer) claims(userID string, ttl time.Duration) *Claims {
	now := i.now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
	}
}

func sign(c *Claims, secret []byte) (string, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// ParseAccessToken verifies an access token.
func (i *Issuer) ParseAccessToken(token string) (*Claims, error) {
	return i.Verify(token, i.accessSecret)
}

// ParseRefreshToken verifies a refresh token.
func (i *Issuer) ParseRefreshToken(token string) (*Claims, error) {
	return i.Verify(token, i.refreshSecret)
}

// Verify checks signature, algorithm and expiry. It returns
// common.ErrTokenExpired for expired tokens and common.ErrInvalidToken for
// everything else that is wrong, including a missing user id.
func (i *Issuer) Verify(token string, secret []byte) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)

	t, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !t.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
