// Package services contains server-side business logic: the credential
// store, the session coordinator and the request authenticator.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// PasswordHasher turns raw passwords into stored hashes and back into a
// yes/no answer.
type PasswordHasher interface {
	Hash(raw string) (string, error)
	// Compare reports whether raw matches hash. A malformed hash is a mismatch.
	Compare(hash, raw string) bool
}

// BcryptHasher hashes with bcrypt at a fixed cost.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(raw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(raw), h.Cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password is longer than 72 bytes", common.ErrorValidation)
		}
		return "", err
	}
	return string(b), nil
}

func (h *BcryptHasher) Compare(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

// NormalizeEmail trims and lower-cases an address. Every write and lookup
// goes through it, so email matching is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CredentialStore persists identities and owns password hashing.
type CredentialStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	newID       func() string
}

func NewCredentialStore(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher) *CredentialStore {
	return &CredentialStore{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		newID:       uuid.NewString,
	}
}

// CreateAccount hashes rawPassword and inserts a new account with no
// refresh token. The existence check and the insert share a transaction.
func (s *CredentialStore) CreateAccount(ctx context.Context, email, fullName, rawPassword string) (*models.Account, error) {
	hash, err := s.hasher.Hash(rawPassword)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}

	account := &models.Account{
		ID:           s.newID(),
		Email:        NormalizeEmail(email),
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetByEmail(ctx, account.Email)
		switch {
		case err == nil:
			return common.ErrorAlreadyExists
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		account, err = repo.Create(ctx, account)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fmt.Errorf("%w: user with email already exists", common.ErrorAlreadyExists)
		}
		return nil, internal(err)
	}

	return account, nil
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	a, err := s.repomanager.Users(s.db).GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, notFoundOrInternal(err)
	}
	return a, nil
}

func (s *CredentialStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	a, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err)
	}
	return a, nil
}

// VerifyPassword never errors; anything other than a match is false.
func (s *CredentialStore) VerifyPassword(a *models.Account, rawPassword string) bool {
	if a == nil || a.PasswordHash == "" {
		return false
	}
	return s.hasher.Compare(a.PasswordHash, rawPassword)
}

// SetRefreshToken overwrites the stored token; "" clears it.
func (s *CredentialStore) SetRefreshToken(ctx context.Context, id, token string) error {
	if err := s.repomanager.Users(s.db).SetRefreshToken(ctx, id, token); err != nil {
		return internal(err)
	}
	return nil
}

// RotateRefreshToken stores next only if presented is still the stored
// token. False means someone else rotated or cleared it first.
func (s *CredentialStore) RotateRefreshToken(ctx context.Context, id, presented, next string) (bool, error) {
	if presented == "" {
		return false, nil
	}
	ok, err := s.repomanager.Users(s.db).SwapRefreshToken(ctx, id, presented, next)
	if err != nil {
		return false, internal(err)
	}
	return ok, nil
}

// SetPassword re-hashes and stores a new password. The refresh token is
// left alone.
func (s *CredentialStore) SetPassword(ctx context.Context, id, rawPassword string) error {
	hash, err := s.hasher.Hash(rawPassword)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			return err
		}
		return fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}

	if err := s.repomanager.Users(s.db).SetPasswordHash(ctx, id, hash); err != nil {
		return notFoundOrInternal(err)
	}
	return nil
}

func internal(err error) error {
	return fmt.Errorf("%w: %v", common.ErrorInternal, err)
}

func notFoundOrInternal(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: user does not exist", common.ErrorNotFound)
	}
	return internal(err)
}
