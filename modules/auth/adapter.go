package auth

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/session-auth/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort defines the interface for authentication operations.
// This is the port that other modules use to access auth functionality.
type AuthPort interface {
	SignUp(ctx context.Context, in SignUpInput) (*domain.Profile, error)
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	SignOut(ctx context.Context, refreshToken string) (bool, error)
	Authenticate(ctx context.Context, accessToken string) (*domain.Profile, error)
}

// Service names registered by the auth module.
const (
	ServiceSignUp       = "sign-up"
	ServiceSignIn       = "sign-in"
	ServiceRefreshToken = "refresh-token"
	ServiceSignOut      = "sign-out"
	ServiceAuthenticate = "authenticate"
)

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

var _ AuthPort = (*AuthAdapter)(nil)

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	return &AuthAdapter{
		container: container,
	}
}

func callService[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return internalError(fmt.Sprintf("%s request failed", service), err)
	}
	return nil
}

// SignUp registers a user.
func (a *AuthAdapter) SignUp(ctx context.Context, in SignUpInput) (*domain.Profile, error) {
	var resp SignUpResponse
	if err := callService(ctx, a.container, ServiceSignUp, &in, &resp); err != nil {
		return nil, err
	}
	if err := resp.Error.Err(); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// SignIn authenticates credentials and opens a session.
func (a *AuthAdapter) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	req := SignInRequest{Email: email, Password: password}
	var resp SignInResponse
	if err := callService(ctx, a.container, ServiceSignIn, &req, &resp); err != nil {
		return nil, err
	}
	if err := resp.Error.Err(); err != nil {
		return nil, err
	}
	return resp.Session, nil
}

// Refresh rotates a refresh token.
func (a *AuthAdapter) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	req := RefreshRequest{RefreshToken: refreshToken}
	var resp RefreshResponse
	if err := callService(ctx, a.container, ServiceRefreshToken, &req, &resp); err != nil {
		return nil, err
	}
	if err := resp.Error.Err(); err != nil {
		return nil, err
	}
	return resp.Tokens, nil
}

// SignOut revokes the session behind a refresh token.
func (a *AuthAdapter) SignOut(ctx context.Context, refreshToken string) (bool, error) {
	req := SignOutRequest{RefreshToken: refreshToken}
	var resp SignOutResponse
	if err := callService(ctx, a.container, ServiceSignOut, &req, &resp); err != nil {
		return false, err
	}
	if err := resp.Error.Err(); err != nil {
		return false, err
	}
	return resp.Revoked, nil
}

// Authenticate resolves an access token to a user profile.
func (a *AuthAdapter) Authenticate(ctx context.Context, accessToken string) (*domain.Profile, error) {
	req := AuthenticateRequest{Token: accessToken}
	var resp AuthenticateResponse
	if err := callService(ctx, a.container, ServiceAuthenticate, &req, &resp); err != nil {
		return nil, err
	}
	if err := resp.Error.Err(); err != nil {
		return nil, err
	}
	return resp.User, nil
}
