package preferences

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outliner/internal/capabilities"
	"outliner/internal/domain"
	"outliner/internal/domain/models"
	"outliner/internal/repository/disk"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	catalogue, err := capabilities.NewRegistry()
	require.NoError(t, err)
	svc := NewService(disk.NewKVStore(t.TempDir(), nil), catalogue, "openai", "gpt-4o-mini", slog.Default())
	return svc.(*Service)
}

func ptr(s string) *string { return &s }

func TestGetPreferencesDefaults(t *testing.T) {
	svc := newTestService(t)

	prefs, err := svc.GetPreferences(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", prefs.UserID)
	assert.Equal(t, "openai", prefs.Provider)
	assert.Equal(t, "gpt-4o-mini", prefs.Model)
}

func TestUpdatePreferences(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	tests := []struct {
		name         string
		req          models.UpdatePreferencesRequest
		wantProvider string
		wantModel    string
		wantErr      bool
	}{
		{
			name:         "provider only picks its default model",
			req:          models.UpdatePreferencesRequest{Provider: ptr("lorem")},
			wantProvider: "lorem",
			wantModel:    "lorem-fast",
		},
		{
			name:         "model within provider",
			req:          models.UpdatePreferencesRequest{Model: ptr("lorem-slow")},
			wantProvider: "lorem",
			wantModel:    "lorem-slow",
		},
		{
			name:         "both",
			req:          models.UpdatePreferencesRequest{Provider: ptr("anthropic"), Model: ptr("claude-sonnet-4-5")},
			wantProvider: "anthropic",
			wantModel:    "claude-sonnet-4-5",
		},
		{
			name:    "model from another provider",
			req:     models.UpdatePreferencesRequest{Model: ptr("gpt-4o")},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			req:     models.UpdatePreferencesRequest{Provider: ptr("gemini")},
			wantErr: true,
		},
	}

	// Cases run in order against the same user
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs, err := svc.UpdatePreferences(ctx, "alice", &tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantProvider, prefs.Provider)
			assert.Equal(t, tt.wantModel, prefs.Model)
			assert.False(t, prefs.UpdatedAt.IsZero())

			stored, err := svc.GetPreferences(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, prefs.Model, stored.Model)
		})
	}

	// Failed updates are not stored
	stored, err := svc.GetPreferences(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", stored.Model)
}
