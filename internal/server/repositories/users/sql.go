package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// queries holds the dialect-specific statements.
type queries struct {
	create           string
	getByEmail       string
	getByID          string
	setRefreshToken  string
	swapRefreshToken string
	setPasswordHash  string
	count            string
}

// sqlRepository implements Repository over database/sql. The backends
// differ only in placeholders and in how a unique violation is reported.
type sqlRepository struct {
	db              dbx.DBTX
	q               queries
	uniqueViolation func(error) bool
	now             func() time.Time
}

func (r *sqlRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	now := r.now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, r.q.create,
		a.ID, a.Email, a.FullName, a.PasswordHash, a.RefreshToken, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if r.uniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *sqlRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.get(ctx, r.q.getByEmail, email)
}

func (r *sqlRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.get(ctx, r.q.getByID, id)
}

func (r *sqlRepository) get(ctx context.Context, query string, arg string) (*models.Account, error) {
	a := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&a.ID, &a.Email, &a.FullName, &a.PasswordHash, &a.RefreshToken, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *sqlRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	if _, err := r.db.ExecContext(ctx, r.q.setRefreshToken, token, r.now().UTC(), id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *sqlRepository) SwapRefreshToken(ctx context.Context, id, presented, next string) (bool, error) {
	n, err := dbx.ExecAffected(ctx, r.db, r.q.swapRefreshToken, next, r.now().UTC(), id, presented)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *sqlRepository) SetPasswordHash(ctx context.Context, id, hash string) error {
	n, err := dbx.ExecAffected(ctx, r.db, r.q.setPasswordHash, hash, r.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *sqlRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, r.q.count).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
