package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_View_OmitsSecrets(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	a := &Account{
		ID:           "id-1",
		Email:        "alice@x.io",
		FullName:     "Alice",
		PasswordHash: "$2a$10$hash",
		RefreshToken: "refresh",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	v := a.View()
	assert.Equal(t, "id-1", v.ID)
	assert.Equal(t, "alice@x.io", v.Email)
	assert.Equal(t, "Alice", v.FullName)
	assert.Equal(t, now, v.CreatedAt)

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hash")
	assert.NotContains(t, string(b), "refresh")
}
