package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountViewOmitsCredentials(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	account := Account{
		ID:           7,
		Username:     "alice",
		PasswordHash: "$2a$10$secret",
		CreatedAt:    created,
	}

	data, err := json.Marshal(account.View())
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))

	assert.ElementsMatch(t,
		[]string{"username", "email", "created_at", "last_login", "login_count"},
		keys(fields),
	)
	assert.NotContains(t, string(data), "secret")
	assert.Nil(t, fields["email"])
	assert.Nil(t, fields["last_login"])
	assert.Equal(t, "2026-01-02T03:04:05Z", fields["created_at"])
	assert.EqualValues(t, 0, fields["login_count"])
}

func TestAccountViewCopiesOptionalFields(t *testing.T) {
	lastLogin := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	account := Account{
		Username:    "bob",
		Email:       "bob@example.com",
		LastLoginAt: &lastLogin,
		LoginCount:  3,
	}

	view := account.View()
	require.NotNil(t, view.Email)
	require.NotNil(t, view.LastLogin)
	assert.Equal(t, "bob@example.com", *view.Email)
	assert.True(t, lastLogin.Equal(*view.LastLogin))
	assert.Nil(t, view.CreatedAt)
	assert.EqualValues(t, 3, view.LoginCount)

	lastLogin = lastLogin.Add(time.Hour)
	assert.False(t, lastLogin.Equal(*view.LastLogin))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
