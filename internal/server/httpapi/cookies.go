package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

func (s *Server) tokenCookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) setTokenCookies(c echo.Context, p models.TokenPair) {
	c.SetCookie(s.tokenCookie(common.AccessTokenCookieName, p.AccessToken))
	c.SetCookie(s.tokenCookie(common.RefreshTokenCookieName, p.RefreshToken))
}

func (s *Server) clearTokenCookies(c echo.Context) {
	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		cookie := s.tokenCookie(name, "")
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
		c.SetCookie(cookie)
	}
}
