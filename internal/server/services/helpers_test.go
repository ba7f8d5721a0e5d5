package services

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

type fixture struct {
	db       *sql.DB
	creds    *CredentialStore
	issuer   *auth.Issuer
	sessions *SessionService
	authn    *Authenticator
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, nil, time.Minute)
}

func newFixtureWith(t *testing.T, limiter LoginLimiter, accessTTL time.Duration) *fixture {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := sql.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	rm := repomanager.NewSQLiteRepositoryManager()
	require.NoError(t, rm.RunMigrations(context.Background(), db))

	creds := NewCredentialStore(db, rm, NewBcryptHasher(bcrypt.MinCost))
	issuer := auth.NewIssuer("access-secret", "refresh-secret", accessTTL, time.Hour)

	return &fixture{
		db:       db,
		creds:    creds,
		issuer:   issuer,
		sessions: NewSessionService(creds, issuer, limiter, logging.Nop()),
		authn:    NewAuthenticator(creds, issuer),
	}
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	return n
}

func (f *fixture) storedRefresh(t *testing.T, email string) string {
	t.Helper()
	a, err := f.creds.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return a.RefreshToken
}

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allow, s.err
}
