package auth

import "github.com/jetfund/jetfund-backend/internal/users"

// LoginResponse is returned by the Slack callback.
type LoginResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	User         *users.ProfileDTO `json:"user"`
}

// RefreshRequest is the POST /auth/refresh body. The expired access token
// travels in the Authorization header.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is the result of a refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
