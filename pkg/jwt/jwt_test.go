package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewManager("secret", time.Hour, "microblog")
	token, exp, err := m.Generate("u1", "alice")
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Nickname)
}

func TestValidate_WrongSecret(t *testing.T) {
	token, _, err := NewManager("a", time.Hour, "microblog").Generate("u1", "alice")
	require.NoError(t, err)

	_, err = NewManager("b", time.Hour, "microblog").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Expired(t *testing.T) {
	m := NewManager("secret", time.Minute, "microblog")
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := m.Generate("u1", "alice")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_Garbage(t *testing.T) {
	_, err := NewManager("secret", time.Hour, "microblog").Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
