package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

const accountKey = "account"

// verifyJWT authenticates the request from the accessToken cookie or the
// Authorization header and stores the account in the echo context. Every
// failure reads the same to the client.
func (s *Server) verifyJWT(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		account, err := s.authn.Authenticate(c.Request().Context(), accessToken(c))
		if err != nil {
			if errors.Is(err, common.ErrorUnauthorized) {
				s.logger.Debug(c.Request().Context(), "request not authenticated", "error", err)
				return fmt.Errorf("%w: invalid access token", common.ErrorUnauthorized)
			}
			return err
		}

		c.Set(accountKey, account)
		return next(c)
	}
}

func accessToken(c echo.Context) string {
	if cookie, err := c.Cookie(common.AccessTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization)); ok {
		return token
	}
	return ""
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	token := strings.TrimSpace(value[len(bearer):])
	return token, token != ""
}

func currentAccount(c echo.Context) (*models.AccountView, bool) {
	a, ok := c.Get(accountKey).(*models.AccountView)
	return a, ok && a != nil
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.Debug(c.Request().Context(), "http",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", c.Response().Status,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"duration", time.Since(start))
		return nil
	}
}
