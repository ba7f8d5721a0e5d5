// Package users persists accounts. Every query is a single statement so
// the refresh-token compare-and-replace is atomic on both backends.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// Create inserts a new account. A taken email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, a *models.Account) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	// SetRefreshToken overwrites the stored refresh token. An empty token clears it.
	SetRefreshToken(ctx context.Context, id, token string) error
	// SwapRefreshToken replaces presented with next only if presented is
	// what is stored. It reports whether the swap happened.
	SwapRefreshToken(ctx context.Context, id, presented, next string) (bool, error)
	SetPasswordHash(ctx context.Context, id, hash string) error
	Count(ctx context.Context) (int64, error)
}
