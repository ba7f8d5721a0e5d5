package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

var bob = &models.AccountView{
	ID:        "u-1",
	Email:     "bob@x.io",
	FullName:  "Bob",
	CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	UpdatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

func newTestServer(t *testing.T, authn *fakeAuthn) (*Server, *mockSessions) {
	t.Helper()
	m := &mockSessions{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	if authn == nil {
		authn = &fakeAuthn{}
	}
	return NewServer(":0", logging.Nop(), m, authn, Options{CookieSecure: true}), m
}

func do(t *testing.T, s *Server, method, path, body string, mutate ...func(*http.Request)) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, f := range mutate {
		f(req)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRegisterHandler(t *testing.T) {
	s, m := newTestServer(t, nil)
	m.On("Register", mock.Anything, "bob@x.io", "Bob", "pw").Return(bob, nil).Once()

	rec, env := do(t, s, http.MethodPost, "/api/v1/users/register",
		`{"email":"bob@x.io","fullName":"Bob","password":"pw"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, http.StatusCreated, env.StatusCode)
	assert.True(t, env.Success)
	assert.Equal(t, "user registered successfully", env.Message)

	var view map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "u-1", view["_id"])
	assert.NotContains(t, view, "passwordHash")
	assert.NotContains(t, view, "refreshToken")
}

func TestRegisterHandler_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", fmt.Errorf("%w: all fields are required", common.ErrorValidation), http.StatusBadRequest, "all fields are required"},
		{"conflict", fmt.Errorf("%w: user with email already exists", common.ErrorAlreadyExists), http.StatusConflict, "user with email already exists"},
		{"internal", fmt.Errorf("%w: db down", common.ErrorInternal), http.StatusInternalServerError, "something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m := newTestServer(t, nil)
			m.On("Register", mock.Anything, "a@b.c", "A", "pw").Return(nil, tt.err).Once()

			rec, env := do(t, s, http.MethodPost, "/api/v1/users/register",
				`{"email":"a@b.c","fullName":"A","password":"pw"}`)

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.code, env.StatusCode)
			assert.False(t, env.Success)
			assert.Equal(t, tt.msg, env.Message)
		})
	}
}

func TestRegisterHandler_MalformedBody(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec, env := do(t, s, http.MethodPost, "/api/v1/users/register", `{"email":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "malformed request body", env.Message)
}

func TestLoginHandler_SetsCookies(t *testing.T) {
	s, m := newTestServer(t, nil)
	m.On("Login", mock.Anything, "bob@x.io", "pw").Return(&services.LoginResult{
		Tokens: models.TokenPair{AccessToken: "acc", RefreshToken: "ref"},
		User:   bob,
	}, nil).Once()

	rec, env := do(t, s, http.MethodPost, "/api/v1/users/login", `{"email":"bob@x.io","password":"pw"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user logged in successfully", env.Message)

	var data loginData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "acc", data.AccessToken)
	assert.Equal(t, "ref", data.RefreshToken)
	assert.Equal(t, "bob@x.io", data.User.Email)

	acc := cookieByName(rec, common.AccessTokenCookieName)
	require.NotNil(t, acc)
	assert.Equal(t, "acc", acc.Value)
	assert.True(t, acc.HttpOnly)
	assert.True(t, acc.Secure)

	ref := cookieByName(rec, common.RefreshTokenCookieName)
	require.NotNil(t, ref)
	assert.Equal(t, "ref", ref.Value)
}

func TestLoginHandler_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", fmt.Errorf("%w: user does not exist", common.ErrorNotFound), http.StatusNotFound},
		{"bad password", fmt.Errorf("%w: invalid user credentials", common.ErrorUnauthorized), http.StatusUnauthorized},
		{"throttled", fmt.Errorf("%w: too many login attempts, try again later", common.ErrorTooManyAttempts), http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m := newTestServer(t, nil)
			m.On("Login", mock.Anything, "bob@x.io", "pw").Return(nil, tt.err).Once()

			rec, env := do(t, s, http.MethodPost, "/api/v1/users/login", `{"email":"bob@x.io","password":"pw"}`)

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, common.Message(tt.err), env.Message)
			assert.Nil(t, cookieByName(rec, common.AccessTokenCookieName))
		})
	}
}

func TestRefreshHandler_PrefersCookie(t *testing.T) {
	s, m := newTestServer(t, nil)
	m.On("Refresh", mock.Anything, "from-cookie").
		Return(&models.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil).Once()

	rec, env := do(t, s, http.MethodPost, "/api/v1/users/refresh-token", `{"refreshToken":"from-body"}`,
		func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: common.RefreshTokenCookieName, Value: "from-cookie"})
		})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "access token refreshed successfully", env.Message)
	assert.Equal(t, "r2", cookieByName(rec, common.RefreshTokenCookieName).Value)
}

func TestRefreshHandler_FallsBackToBody(t *testing.T) {
	s, m := newTestServer(t, nil)
	m.On("Refresh", mock.Anything, "from-body").
		Return(&models.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil).Once()

	rec, env := do(t, s, http.MethodPost, "/api/v1/users/refresh-token", `{"refreshToken":"from-body"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var pair models.TokenPair
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	assert.Equal(t, "a2", pair.AccessToken)
}

func TestRefreshHandler_Missing(t *testing.T) {
	s, m := newTestServer(t, nil)
	m.On("Refresh", mock.Anything, "").
		Return(nil, fmt.Errorf("%w: unauthorized request", common.ErrorUnauthorized)).Once()

	rec, env := do(t, s, http.MethodPost, "/api/v1/users/refresh-token", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized request", env.Message)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	authn := &fakeAuthn{err: fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrTokenExpired)}
	s, _ := newTestServer(t, authn)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/users/logout"},
		{http.MethodPost, "/api/v1/users/change-password"},
		{http.MethodGet, "/api/v1/users/current-user"},
	} {
		rec, env := do(t, s, route.method, route.path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
		assert.Equal(t, "invalid access token", env.Message, route.path)
	}
}

func TestVerifyJWT_TokenSources(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*http.Request)
		want   string
	}{
		{"cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: common.AccessTokenCookieName, Value: "c-tok"})
		}, "c-tok"},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer b-tok") }, "b-tok"},
		{"cookie wins", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: common.AccessTokenCookieName, Value: "c-tok"})
			r.Header.Set("Authorization", "Bearer b-tok")
		}, "c-tok"},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic xyz") }, ""},
		{"none", func(*http.Request) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authn := &fakeAuthn{account: bob}
			s, m := newTestServer(t, authn)
			m.On("GetCurrentUser", mock.Anything, "u-1").Return(bob, nil).Once()

			rec, _ := do(t, s, http.MethodGet, "/api/v1/users/current-user", "", tt.mutate)

			assert.Equal(t, http.StatusOK, rec.Code)
			require.Len(t, authn.tokens, 1)
			assert.Equal(t, tt.want, authn.tokens[0])
		})
	}
}

func TestVerifyJWT_InternalFailure(t *testing.T) {
	authn := &fakeAuthn{err: fmt.Errorf("%w: db down", common.ErrorInternal)}
	s, _ := newTestServer(t, authn)

	rec, env := do(t, s, http.MethodGet, "/api/v1/users/current-user", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "something went wrong", env.Message)
}

func TestLogoutHandler_ClearsCookies(t *testing.T) {
	s, m := newTestServer(t, &fakeAuthn{account: bob})
	m.On("Logout", mock.Anything, "u-1").Return(nil).Once()

	rec, env := do(t, s, http.MethodPost, "/api/v1/users/logout", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user logged out", env.Message)

	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		c := cookieByName(rec, name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.Equal(t, -1, c.MaxAge)
	}
}

func TestChangePasswordHandler(t *testing.T) {
	s, m := newTestServer(t, &fakeAuthn{account: bob})
	m.On("ChangePassword", mock.Anything, "u-1", "old", "new").Return(nil).Once()

	rec, env := do(t, s, http.MethodPost, "/api/v1/users/change-password",
		`{"currentPassword":"old","newPassword":"new"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "password changed successfully", env.Message)
}

func TestChangePasswordHandler_WrongCurrent(t *testing.T) {
	s, m := newTestServer(t, &fakeAuthn{account: bob})
	m.On("ChangePassword", mock.Anything, "u-1", "bad", "new").
		Return(fmt.Errorf("%w: invalid password", common.ErrorUnauthorized)).Once()

	rec, env := do(t, s, http.MethodPost, "/api/v1/users/change-password",
		`{"currentPassword":"bad","newPassword":"new"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid password", env.Message)
}

func TestCurrentUserHandler(t *testing.T) {
	s, m := newTestServer(t, &fakeAuthn{account: bob})
	m.On("GetCurrentUser", mock.Anything, "u-1").Return(bob, nil).Once()

	rec, env := do(t, s, http.MethodGet, "/api/v1/users/current-user", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "current user fetched successfully", env.Message)

	var got models.AccountView
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, bob.Email, got.Email)
}

func TestUnknownRoute(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec, env := do(t, s, http.MethodGet, "/api/v1/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}

func TestStatusFor_UnknownError(t *testing.T) {
	code, msg := statusFor(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "something went wrong", msg)
}
