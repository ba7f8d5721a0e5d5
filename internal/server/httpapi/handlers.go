package httpapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type registerRequest struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type loginData struct {
	User         *models.AccountView `json:"user"`
	AccessToken  string              `json:"accessToken"`
	RefreshToken string              `json:"refreshToken"`
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrorValidation)
	}
	return nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	view, err := s.sessions.Register(c.Request().Context(), req.Email, req.FullName, req.Password)
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, view, "user registered successfully")
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := s.sessions.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	s.setTokenCookies(c, res.Tokens)
	return respond(c, http.StatusOK, loginData{
		User:         res.User,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, "user logged in successfully")
}

func (s *Server) refresh(c echo.Context) error {
	var presented string
	if cookie, err := c.Cookie(common.RefreshTokenCookieName); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req refreshRequest
		// an empty or non-JSON body just means no token was sent
		_ = c.Bind(&req)
		presented = req.RefreshToken
	}

	pair, err := s.sessions.Refresh(c.Request().Context(), presented)
	if err != nil {
		return err
	}

	s.setTokenCookies(c, *pair)
	return respond(c, http.StatusOK, pair, "access token refreshed successfully")
}

func (s *Server) logout(c echo.Context) error {
	account, ok := currentAccount(c)
	if !ok {
		return fmt.Errorf("%w: unauthorized request", common.ErrorUnauthorized)
	}

	if err := s.sessions.Logout(c.Request().Context(), account.ID); err != nil {
		return err
	}

	s.clearTokenCookies(c)
	return respond(c, http.StatusOK, nil, "user logged out")
}

func (s *Server) changePassword(c echo.Context) error {
	account, ok := currentAccount(c)
	if !ok {
		return fmt.Errorf("%w: unauthorized request", common.ErrorUnauthorized)
	}

	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := s.sessions.ChangePassword(c.Request().Context(), account.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}

	return respond(c, http.StatusOK, nil, "password changed successfully")
}

func (s *Server) currentUser(c echo.Context) error {
	account, ok := currentAccount(c)
	if !ok {
		return fmt.Errorf("%w: unauthorized request", common.ErrorUnauthorized)
	}

	view, err := s.sessions.GetCurrentUser(c.Request().Context(), account.ID)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, view, "current user fetched successfully")
}
