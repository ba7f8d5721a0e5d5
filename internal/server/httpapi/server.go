// Package httpapi serves the session operations as a JSON API under
// /api/v1/users using echo. Tokens travel in HttpOnly cookies, and protected
// routes also accept an Authorization: Bearer header.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

// Sessions is the part of the session coordinator the transport calls.
type Sessions interface {
	Register(ctx context.Context, email, fullName, password string) (*models.AccountView, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, accountID string) error
	ChangePassword(ctx context.Context, accountID, current, next string) error
	GetCurrentUser(ctx context.Context, accountID string) (*models.AccountView, error)
}

// Authenticator resolves an access token to an account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.AccountView, error)
}

// Options tune the HTTP server.
type Options struct {
	CookieSecure bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	address  string
	sessions Sessions
	authn    Authenticator
	logger   logging.Logger
	opts     Options
	e        *echo.Echo
}

func NewServer(address string, l logging.Logger, sessions Sessions, authn Authenticator, opts Options) *Server {
	s := &Server{
		address:  address,
		sessions: sessions,
		authn:    authn,
		logger:   l.With("module", "http_server"),
		opts:     opts,
	}
	s.e = s.newEcho()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger)

	e.GET("/healthz", s.health)

	users := e.Group("/api/v1/users")
	users.POST("/register", s.register)
	users.POST("/login", s.login)
	users.POST("/refresh-token", s.refresh)

	users.POST("/logout", s.logout, s.verifyJWT)
	users.POST("/change-password", s.changePassword, s.verifyJWT)
	users.GET("/current-user", s.currentUser, s.verifyJWT)

	return e
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.e.Server.ReadTimeout = s.opts.ReadTimeout
	s.e.Server.WriteTimeout = s.opts.WriteTimeout

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		errCh <- s.e.Start(s.address)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
