package models

import "time"

// UserPreferences holds per-user defaults for new outline sessions.
type UserPreferences struct {
	UserID    string    `json:"user_id"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdatePreferencesRequest is a partial update; nil fields are left unchanged.
type UpdatePreferencesRequest struct {
	Provider *string `json:"provider"`
	Model    *string `json:"model"`
}
