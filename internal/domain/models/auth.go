package models

import "github.com/golang-jwt/jwt/v5"

// LocalUserID identifies the single user of a server running without authentication.
const LocalUserID = "local"

// Claims is the JWT payload accepted by the API. Tokens issued by Supabase Auth and
// HS256 tokens signed with AUTH_JWT_SECRET share this shape.
type Claims struct {
	jwt.RegisteredClaims        // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string `json:"email,omitempty"`
	Role                 string `json:"role,omitempty"` // "authenticated" or "anon"
	SessionID            string `json:"session_id,omitempty"`
	IsAnonymous          bool   `json:"is_anonymous,omitempty"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *Claims) GetUserID() string {
	return c.Subject
}
