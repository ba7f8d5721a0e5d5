package users

import (
	"errors"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
)

var sqliteQueries = queries{
	create: `INSERT INTO users (id, email, full_name, password_hash, refresh_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	getByEmail: `SELECT id, email, full_name, password_hash, refresh_token, created_at, updated_at FROM users
		 WHERE email = ?`,
	getByID: `SELECT id, email, full_name, password_hash, refresh_token, created_at, updated_at FROM users
		 WHERE id = ?`,
	setRefreshToken: `UPDATE users SET refresh_token = ?, updated_at = ?
		 WHERE id = ?`,
	swapRefreshToken: `UPDATE users SET refresh_token = ?, updated_at = ?
		 WHERE id = ? AND refresh_token = ? AND refresh_token <> ''`,
	setPasswordHash: `UPDATE users SET password_hash = ?, updated_at = ?
		 WHERE id = ?`,
	count: `SELECT COUNT(*) FROM users`,
}

type SQLiteRepository struct {
	sqlRepository
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{sqlRepository{
		db:              db,
		q:               sqliteQueries,
		uniqueViolation: isSQLiteUniqueViolation,
		now:             time.Now,
	}}
}

func isSQLiteUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// connection without extended result codes
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}
