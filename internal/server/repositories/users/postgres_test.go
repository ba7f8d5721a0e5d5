package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	repo := NewPostgresRepository(db)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock, db
}

const (
	insertQ  = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*email,\s*full_name,\s*password_hash,\s*refresh_token,\s*created_at,\s*updated_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7\)\s*$`
	byEmailQ = `(?s)^SELECT\s+id,\s*email,\s*full_name,\s*password_hash,\s*refresh_token,\s*created_at,\s*updated_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`
	byIDQ    = `(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`
	setRTQ   = `(?s)^UPDATE\s+users\s+SET\s+refresh_token\s*=\s*\$1,\s*updated_at\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$3\s*$`
	swapRTQ  = `(?s)^UPDATE\s+users\s+SET\s+refresh_token\s*=\s*\$1,\s*updated_at\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$3\s+AND\s+refresh_token\s*=\s*\$4\s+AND\s+refresh_token\s*<>\s*''\s*$`
	setPwQ   = `(?s)^UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$1,\s*updated_at\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$3\s*$`
	countQ   = `(?s)^SELECT\s+COUNT\(\*\)\s+FROM\s+users\s*$`
)

var accountCols = []string{"id", "email", "full_name", "password_hash", "refresh_token", "created_at", "updated_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(insertQ).
		WithArgs("u-1", "alice@x.io", "Alice", "hash", "", fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(context.Background(), &models.Account{
		ID: "u-1", Email: "alice@x.io", FullName: "Alice", PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, fixedNow, got.CreatedAt)
	assert.Equal(t, fixedNow, got.UpdatedAt)
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(insertQ).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	_, err := repo.Create(context.Background(), &models.Account{ID: "u-1", Email: "alice@x.io"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(insertQ).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Account{ID: "u-1", Email: "alice@x.io"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	assert.NotErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	rows := sqlmock.NewRows(accountCols).
		AddRow("u-1", "alice@x.io", "Alice", "hash", "rt", fixedNow, fixedNow)
	mock.ExpectQuery(byEmailQ).WithArgs("alice@x.io").WillReturnRows(rows)

	got, err := repo.GetByEmail(context.Background(), "alice@x.io")
	require.NoError(t, err)
	assert.Equal(t, &models.Account{
		ID: "u-1", Email: "alice@x.io", FullName: "Alice", PasswordHash: "hash",
		RefreshToken: "rt", CreatedAt: fixedNow, UpdatedAt: fixedNow,
	}, got)
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(byEmailQ).WithArgs("ghost@x.io").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@x.io")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(byIDQ).WithArgs("u-1").WillReturnError(errors.New("db err"))

	_, err := repo.GetByID(context.Background(), "u-1")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestSetRefreshToken(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(setRTQ).
		WithArgs("tok", fixedNow, "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(setRTQ).
		WithArgs("", fixedNow, "u-1").
		WillReturnError(errors.New("db err"))

	require.NoError(t, repo.SetRefreshToken(context.Background(), "u-1", "tok"))
	require.Error(t, repo.SetRefreshToken(context.Background(), "u-1", ""))
}

func TestSwapRefreshToken(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		err      error
		want     bool
		wantErr  bool
	}{
		{name: "swapped", affected: 1, want: true},
		{name: "stale", affected: 0, want: false},
		{name: "db error", err: errors.New("db err"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, _ := newRepoWithMock(t)

			exp := mock.ExpectExec(swapRTQ).WithArgs("next", fixedNow, "u-1", "old")
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, tt.affected))
			}

			ok, err := repo.SwapRefreshToken(context.Background(), "u-1", "old", "next")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestSetPasswordHash(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(setPwQ).
		WithArgs("h2", fixedNow, "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(setPwQ).
		WithArgs("h2", fixedNow, "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetPasswordHash(context.Background(), "u-1", "h2"))
	assert.ErrorIs(t, repo.SetPasswordHash(context.Background(), "ghost", "h2"), common.ErrorNotFound)
}

func TestCount(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(countQ).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
