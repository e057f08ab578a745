package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neargrid/internal/domain"
)

const (
	testSecret = "a-very-long-test-secret-of-32-bytes!"
	testIssuer = "neargrid-test"
)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims idClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims() idClaims {
	now := time.Now()
	return idClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			Issuer:    testIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Name:    "Asha Verma",
		Picture: "https://example.com/asha.png",
	}
}

func TestVerifier_SignIn(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer)
	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims())

	identity, err := v.SignIn(context.Background(), token)

	require.NoError(t, err)
	assert.Equal(t, "user-42", identity.Subject)
	assert.Equal(t, "Asha Verma", identity.DisplayName)
	require.NotNil(t, identity.AvatarURL)
	assert.Equal(t, "https://example.com/asha.png", *identity.AvatarURL)
}

func TestVerifier_SignInNoPicture(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer)
	claims := validClaims()
	claims.Picture = ""

	identity, err := v.SignIn(context.Background(), sign(t, jwt.SigningMethodHS256, []byte(testSecret), claims))

	require.NoError(t, err)
	assert.Nil(t, identity.AvatarURL)
}

func TestVerifier_Rejects(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "someone-else"

	noSubject := validClaims()
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"empty", func(t *testing.T) string { return "" }},
		{"garbage", func(t *testing.T) string { return "not.a.jwt" }},
		{"wrong secret", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte("another-secret-another-secret-xx"), validClaims())
		}},
		{"wrong method", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims())
		}},
		{"expired", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired)
		}},
		{"wrong issuer", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer)
		}},
		{"no subject", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), noSubject)
		}},
	}

	v := NewVerifier(testSecret, testIssuer)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.SignIn(context.Background(), tt.token(t))
			assert.ErrorIs(t, err, domain.ErrAuth)
		})
	}
}

func TestVerifier_NotConfigured(t *testing.T) {
	v := NewVerifier("", "")
	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims())

	_, err := v.SignIn(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestVerifier_CancelledContext(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.SignIn(ctx, sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()))
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.ErrorIs(t, err, context.Canceled)
}
