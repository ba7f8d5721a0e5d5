package grpc

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) Register(ctx context.Context, email, fullName, password string) (*models.AccountView, error) {
	args := m.Called(ctx, email, fullName, password)
	v, _ := args.Get(0).(*models.AccountView)
	return v, args.Error(1)
}

func (m *mockSessions) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	args := m.Called(ctx, email, password)
	r, _ := args.Get(0).(*services.LoginResult)
	return r, args.Error(1)
}

func (m *mockSessions) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	p, _ := args.Get(0).(*models.TokenPair)
	return p, args.Error(1)
}

func (m *mockSessions) Logout(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

func (m *mockSessions) ChangePassword(ctx context.Context, accountID, current, next string) error {
	return m.Called(ctx, accountID, current, next).Error(0)
}

func (m *mockSessions) GetCurrentUser(ctx context.Context, accountID string) (*models.AccountView, error) {
	args := m.Called(ctx, accountID)
	v, _ := args.Get(0).(*models.AccountView)
	return v, args.Error(1)
}

type fakeAuthn struct {
	account *models.AccountView
	err     error
	tokens  []string
}

func (f *fakeAuthn) Authenticate(_ context.Context, token string) (*models.AccountView, error) {
	f.tokens = append(f.tokens, token)
	return f.account, f.err
}
