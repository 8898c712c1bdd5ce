package dto

import "time"

// TokenClaims is the verified content of an access token.
type TokenClaims struct {
	UserID    string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}
