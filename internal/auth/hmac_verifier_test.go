package auth

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outliner/internal/domain"
	"outliner/internal/domain/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestVerifier(t *testing.T) *HMACVerifier {
	t.Helper()
	v, err := NewHMACVerifier(testSecret, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return v
}

func claimsFor(subject string, expires time.Time) *models.Claims {
	return &models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
}

func TestHMACVerifier(t *testing.T) {
	v := newTestVerifier(t)
	other, err := NewHMACVerifier("ffffffffffffffffffffffffffffffff", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	valid, err := v.SignToken(claimsFor("user-1", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	expired, err := v.SignToken(claimsFor("user-1", time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	noSubject, err := v.SignToken(claimsFor("", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	foreign, err := other.SignToken(claimsFor("user-1", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantSub string
	}{
		{name: "valid", token: valid, wantSub: "user-1"},
		{name: "expired", token: expired},
		{name: "missing subject", token: noSubject},
		{name: "wrong secret", token: foreign},
		{name: "garbage", token: "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.VerifyToken(tt.token)
			if tt.wantSub == "" {
				assert.ErrorIs(t, err, domain.ErrUnauthorized)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, claims.GetUserID())
		})
	}
}

func TestHMACVerifierRejectsShortSecret(t *testing.T) {
	_, err := NewHMACVerifier("short", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestCheckClaimsRole(t *testing.T) {
	claims := claimsFor("u", time.Now())
	assert.Error(t, checkClaims(claims, true))
	claims.Role = roleAuthenticated
	assert.NoError(t, checkClaims(claims, true))
}
