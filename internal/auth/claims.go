package auth

import (
	"time"
)

// Claims are the identity claims carried by a v4.local token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}
