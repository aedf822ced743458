package services

import (
	"context"

	"outliner/internal/domain/models"
)

// CredentialService stores provider API keys per user. Keys are never returned in full.
type CredentialService interface {
	// GetCredential reports whether a key is configured for the provider and where it comes from
	GetCredential(ctx context.Context, userID, provider string) (*models.CredentialStatus, error)

	// ListCredentials reports every known provider
	ListCredentials(ctx context.Context, userID string) ([]models.CredentialStatus, error)

	// SetCredential stores the user's key for the provider
	SetCredential(ctx context.Context, userID, provider string, req *models.SetCredentialRequest) (*models.CredentialStatus, error)

	// DeleteCredential removes the user's key; the environment key (if any) applies again
	DeleteCredential(ctx context.Context, userID, provider string) error

	// ResolveAPIKey returns the key to use for a request: the user's key, else the
	// environment key, else "".
	ResolveAPIKey(ctx context.Context, userID, provider string) (string, error)
}
