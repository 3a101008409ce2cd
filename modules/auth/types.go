package auth

import (
	domain "github.com/example/session-auth/domain/user"
)

// Replies carry failures in Error rather than as handler errors, so the
// caller can rebuild the typed *Error on its side.

// SignUpResponse represents a registration reply.
type SignUpResponse struct {
	User  *domain.Profile `json:"user,omitempty"`
	Error *ErrorPayload   `json:"error,omitempty"`
}

// SignInRequest represents a sign-in request.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInResponse represents a sign-in reply.
type SignInResponse struct {
	Session *domain.Session `json:"session,omitempty"`
	Error   *ErrorPayload   `json:"error,omitempty"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse represents a token refresh reply.
type RefreshResponse struct {
	Tokens *domain.TokenPair `json:"tokens,omitempty"`
	Error  *ErrorPayload     `json:"error,omitempty"`
}

// SignOutRequest represents a sign-out request.
type SignOutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SignOutResponse represents a sign-out reply.
type SignOutResponse struct {
	Revoked bool          `json:"revoked"`
	Error   *ErrorPayload `json:"error,omitempty"`
}

// AuthenticateRequest represents an access-token authentication request.
type AuthenticateRequest struct {
	Token string `json:"token"`
}

// AuthenticateResponse represents an authentication reply.
type AuthenticateResponse struct {
	User  *domain.Profile `json:"user,omitempty"`
	Error *ErrorPayload   `json:"error,omitempty"`
}
