package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// LoginLimiter throttles login attempts per key (the normalized email).
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// TokenIssuer mints and verifies session tokens.
type TokenIssuer interface {
	IssueAccessToken(a *models.Account) (string, error)
	IssueRefreshToken(a *models.Account) (string, error)
	ParseAccessToken(token string) (*auth.Claims, error)
	ParseRefreshToken(token string) (*auth.Claims, error)
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Tokens models.TokenPair
	User   *models.AccountView
}

// SessionService coordinates the session lifecycle. Each account has at
// most one live refresh token: login and logout overwrite it, refresh
// replaces it only if the presented token is still the stored one.
type SessionService struct {
	creds   *CredentialStore
	issuer  TokenIssuer
	limiter LoginLimiter
	log     logging.Logger
}

// NewSessionService wires the coordinator. limiter may be nil to disable
// login throttling.
func NewSessionService(creds *CredentialStore, issuer TokenIssuer, limiter LoginLimiter, log logging.Logger) *SessionService {
	return &SessionService{
		creds:   creds,
		issuer:  issuer,
		limiter: limiter,
		log:     log.With("module", "sessions"),
	}
}

// Register creates an account and returns its sanitized view.
func (s *SessionService) Register(ctx context.Context, email, fullName, password string) (*models.AccountView, error) {
	if isBlank(email) || isBlank(fullName) || isBlank(password) {
		return nil, fmt.Errorf("%w: all fields are required", common.ErrorValidation)
	}

	a, err := s.creds.CreateAccount(ctx, email, fullName, password)
	if err != nil {
		if errors.Is(err, common.ErrorInternal) {
			s.log.Error(ctx, "register failed", "error", err)
		}
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", a.ID)
	return a.View(), nil
}

// Login verifies credentials, mints a fresh pair and makes its refresh
// token the only valid one for the account.
func (s *SessionService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if isBlank(email) {
		return nil, fmt.Errorf("%w: email is required", common.ErrorValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", common.ErrorValidation)
	}

	if err := s.throttle(ctx, NormalizeEmail(email)); err != nil {
		return nil, err
	}

	a, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if !s.creds.VerifyPassword(a, password) {
		s.log.Warn(ctx, "login rejected", "user_id", a.ID)
		return nil, fmt.Errorf("%w: invalid user credentials", common.ErrorUnauthorized)
	}

	pair, err := s.issuePair(ctx, a)
	if err != nil {
		return nil, err
	}

	if err := s.creds.SetRefreshToken(ctx, a.ID, pair.RefreshToken); err != nil {
		s.log.Error(ctx, "store refresh token", "user_id", a.ID, "error", err)
		return nil, err
	}

	s.log.Info(ctx, "user logged in", "user_id", a.ID)
	return &LoginResult{Tokens: *pair, User: a.View()}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed: a second use, or a use after logout or a later login, fails.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*models.TokenPair, error) {
	if presented == "" {
		return nil, fmt.Errorf("%w: unauthorized request", common.ErrorUnauthorized)
	}

	claims, err := s.issuer.ParseRefreshToken(presented)
	if err != nil {
		s.log.Debug(ctx, "refresh token rejected", "error", err)
		return nil, fmt.Errorf("%w: invalid refresh token", common.ErrorUnauthorized)
	}

	a, err := s.creds.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: invalid refresh token", common.ErrorUnauthorized)
		}
		return nil, err
	}

	pair, err := s.issuePair(ctx, a)
	if err != nil {
		return nil, err
	}

	ok, err := s.creds.RotateRefreshToken(ctx, a.ID, presented, pair.RefreshToken)
	if err != nil {
		s.log.Error(ctx, "rotate refresh token", "user_id", a.ID, "error", err)
		return nil, err
	}
	if !ok {
		s.log.Warn(ctx, "stale refresh token presented", "user_id", a.ID)
		return nil, fmt.Errorf("%w: invalid refresh token", common.ErrorUnauthorized)
	}

	return pair, nil
}

// Logout clears the stored refresh token. It is idempotent and an unknown
// account is not an error. Outstanding access tokens stay valid until they
// expire.
func (s *SessionService) Logout(ctx context.Context, accountID string) error {
	if err := s.creds.SetRefreshToken(ctx, accountID, ""); err != nil {
		s.log.Error(ctx, "clear refresh token", "user_id", accountID, "error", err)
		return err
	}
	s.log.Info(ctx, "user logged out", "user_id", accountID)
	return nil
}

// ChangePassword replaces the password after checking the current one.
// The existing session is kept.
func (s *SessionService) ChangePassword(ctx context.Context, accountID, current, next string) error {
	if current == "" || isBlank(next) {
		return fmt.Errorf("%w: all fields are required", common.ErrorValidation)
	}

	a, err := s.creds.FindByID(ctx, accountID)
	if err != nil {
		return err
	}

	if !s.creds.VerifyPassword(a, current) {
		return fmt.Errorf("%w: invalid password", common.ErrorUnauthorized)
	}

	if err := s.creds.SetPassword(ctx, a.ID, next); err != nil {
		return err
	}

	s.log.Info(ctx, "password changed", "user_id", a.ID)
	return nil
}

// GetCurrentUser returns the sanitized view of an account.
func (s *SessionService) GetCurrentUser(ctx context.Context, accountID string) (*models.AccountView, error) {
	a, err := s.creds.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return a.View(), nil
}

func (s *SessionService) throttle(ctx context.Context, key string) error {
	if s.limiter == nil {
		return nil
	}

	ok, err := s.limiter.Allow(ctx, key)
	if err != nil {
		// fail open, the store is still protected by bcrypt cost
		s.log.Error(ctx, "login limiter unavailable", "error", err)
		return nil
	}
	if !ok {
		s.log.Warn(ctx, "login throttled", "email", key)
		return fmt.Errorf("%w: too many login attempts, try again later", common.ErrorTooManyAttempts)
	}
	return nil
}

func (s *SessionService) issuePair(ctx context.Context, a *models.Account) (*models.TokenPair, error) {
	access, err := s.issuer.IssueAccessToken(a)
	if err != nil {
		s.log.Error(ctx, "issue access token", "user_id", a.ID, "error", err)
		return nil, internal(err)
	}
	refresh, err := s.issuer.IssueRefreshToken(a)
	if err != nil {
		s.log.Error(ctx, "issue refresh token", "user_id", a.ID, "error", err)
		return nil, internal(err)
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
