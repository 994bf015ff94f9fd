package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func TestSignInReadsEmailClaim(t *testing.T) {
	m := NewManager()
	id, err := m.SignIn(token(t, jwt.MapClaims{
		"email": "a@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}))
	require.NoError(t, err)
	require.Equal(t, "a@example.com", id.Email)
	require.Equal(t, id, m.Current())
}

func TestSignInFallsBackToSubject(t *testing.T) {
	m := NewManager()
	id, err := m.SignIn(token(t, jwt.MapClaims{"sub": "b@example.com"}))
	require.NoError(t, err)
	require.Equal(t, "b@example.com", id.Email)
}

func TestSignInRejectsExpiredToken(t *testing.T) {
	m := NewManager()
	_, err := m.SignIn(token(t, jwt.MapClaims{
		"email": "a@example.com",
		"exp":   time.Now().Add(-time.Hour).Unix(),
	}))
	require.ErrorIs(t, err, ErrInvalidToken)
	require.Nil(t, m.Current())
}

func TestSignInRejectsGarbage(t *testing.T) {
	m := NewManager()
	_, err := m.SignIn("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestWatchSeesTransitions(t *testing.T) {
	m := NewManager()
	transitions := m.Watch()

	_, err := m.SignIn(token(t, jwt.MapClaims{"email": "a@example.com"}))
	require.NoError(t, err)
	m.SignOut()

	id := <-transitions
	require.NotNil(t, id)
	require.Equal(t, "a@example.com", id.Email)

	id = <-transitions
	require.Nil(t, id)
	require.Nil(t, m.Current())
}
