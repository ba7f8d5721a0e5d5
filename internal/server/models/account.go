// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is the stored identity record. PasswordHash and RefreshToken must
// never leave the server; use View for anything that goes over the wire.
type Account struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	// RefreshToken is empty or exactly the last refresh token issued.
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountView is the sanitized form of Account returned to callers.
type AccountView struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *Account) View() *AccountView {
	return &AccountView{
		ID:        a.ID,
		Email:     a.Email,
		FullName:  a.FullName,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
