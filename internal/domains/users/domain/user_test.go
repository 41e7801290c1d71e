package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser_NormalizesEmail(t *testing.T) {
	now := time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)
	user, err := NewUser("  Alice@Example.COM ", "hash", now)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.Equal(t, now, user.CreatedAt)
}

func TestNormalizeEmail_Rejects(t *testing.T) {
	for _, email := range []string{"", "alice", "@example.com", "alice@"} {
		_, err := NormalizeEmail(email)
		assert.ErrorIs(t, err, ErrInvalidEmail, email)
	}
}

func TestValidatePassword(t *testing.T) {
	require.ErrorIs(t, ValidatePassword("short"), ErrWeakPassword)
	require.NoError(t, ValidatePassword("long-enough"))
}
