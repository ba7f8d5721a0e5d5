package users

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

var postgresQueries = queries{
	create: `INSERT INTO users (id, email, full_name, password_hash, refresh_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	getByEmail: `SELECT id, email, full_name, password_hash, refresh_token, created_at, updated_at FROM users
		 WHERE email = $1`,
	getByID: `SELECT id, email, full_name, password_hash, refresh_token, created_at, updated_at FROM users
		 WHERE id = $1`,
	setRefreshToken: `UPDATE users SET refresh_token = $1, updated_at = $2
		 WHERE id = $3`,
	swapRefreshToken: `UPDATE users SET refresh_token = $1, updated_at = $2
		 WHERE id = $3 AND refresh_token = $4 AND refresh_token <> ''`,
	setPasswordHash: `UPDATE users SET password_hash = $1, updated_at = $2
		 WHERE id = $3`,
	count: `SELECT COUNT(*) FROM users`,
}

type PostgresRepository struct {
	sqlRepository
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{sqlRepository{
		db:              db,
		q:               postgresQueries,
		uniqueViolation: isPgUniqueViolation,
		now:             time.Now,
	}}
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
