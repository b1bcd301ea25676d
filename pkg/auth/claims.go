package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID  string
	SlackID string
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to clients. The user id
// travels as the registered subject.
type AccessTokenClaims struct {
	SlackID string `json:"slack_id,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *AccessTokenClaims) UserID() string {
	return c.Subject
}

// IssuedAtTime returns iat, or the zero time when absent.
func (c *AccessTokenClaims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}
