package api

import (
	domain "github.com/example/session-auth/domain/user"
)

// SignUpRequest represents a user registration request.
type SignUpRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Image    *string `json:"image"`
}

// SignInRequest represents a user sign-in request.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpResponse is returned after registration. It never includes the
// password hash.
type SignUpResponse struct {
	Message string          `json:"message"`
	User    *domain.Profile `json:"user"`
}

// SignInUser is the user block of a sign-in response. Token repeats the
// access token for clients that prefer bearer headers over cookies.
type SignInUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

// SignInResponse represents a successful sign-in.
type SignInResponse struct {
	Message string     `json:"message"`
	User    SignInUser `json:"user"`
}

// RefreshResponse carries the new access token.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// MeResponse wraps the authenticated user.
type MeResponse struct {
	User *domain.Profile `json:"user"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
