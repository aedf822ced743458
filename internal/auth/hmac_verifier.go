package auth

import (
	"errors"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"

	"outliner/internal/domain"
	"outliner/internal/domain/models"
)

// HMACVerifier validates HS256 tokens signed with a shared secret. It suits self-hosted
// deployments without an identity provider.
type HMACVerifier struct {
	secret []byte
	logger *slog.Logger
}

// NewHMACVerifier creates a verifier for tokens signed with secret.
func NewHMACVerifier(secret string, logger *slog.Logger) (*HMACVerifier, error) {
	if len(secret) < 32 {
		return nil, errors.New("JWT secret must be at least 32 bytes")
	}
	logger.Info("JWT verifier initialized", "method", "HS256")
	return &HMACVerifier{secret: []byte(secret), logger: logger}, nil
}

// VerifyToken validates the signature and expiry of tokenString. The role claim is not required.
func (v *HMACVerifier) VerifyToken(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		v.logger.Debug("token rejected", "error", err)
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if err := checkClaims(claims, false); err != nil {
		v.logger.Debug("token claims rejected", "error", err)
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

func (v *HMACVerifier) Close() error {
	return nil
}

// SignToken issues an HS256 token for claims. Used by the CLI and tests.
func (v *HMACVerifier) SignToken(claims *models.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
