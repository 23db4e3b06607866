package domain

import "time"

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims represents the verified claims of an access or refresh token
type TokenClaims struct {
	UserID    string
	Email     string
	Username  string
	FullName  string
	TokenType string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// IsExpired checks if the token is expired
func (tc TokenClaims) IsExpired() bool {
	return time.Now().After(tc.ExpiresAt)
}

// TokenPair is a freshly issued access/refresh pair
type TokenPair struct {
	AccessToken        string
	RefreshToken       string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}
