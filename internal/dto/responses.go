package dto

import "github.com/prperemyshlev/videotube-service/internal/domain"

// APIResponse is the success envelope shared by every endpoint
type APIResponse struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

// ErrorResponse is the failure envelope; it never carries internal details
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// LoginResponse is returned by login
type LoginResponse struct {
	User         domain.SanitizedUser `json:"user"`
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
}

// TokensResponse is returned by refresh
type TokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SubscriptionResponse reports the subscription state after a toggle
type SubscriptionResponse struct {
	Subscribed bool `json:"subscribed"`
}
