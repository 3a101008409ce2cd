package api

import (
	"errors"
	"log/slog"

	domain "github.com/example/session-auth/domain/user"
	"github.com/example/session-auth/modules/auth"
	"github.com/gofiber/fiber/v2"
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	auth    auth.AuthPort
	cookies CookiePolicy
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(port auth.AuthPort, cookies CookiePolicy, log *slog.Logger) *Handlers {
	return &Handlers{
		auth:    port,
		cookies: cookies,
		logger:  log,
	}
}

// SignUp handles user registration.
func (h *Handlers) SignUp(c *fiber.Ctx) error {
	var req SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return auth.ErrValidation.WithMessage("invalid request body")
	}

	profile, err := h.auth.SignUp(c.UserContext(), auth.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Image:    req.Image,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(SignUpResponse{
		Message: "User created successfully.",
		User:    profile,
	})
}

// SignIn handles user sign-in and sets both token cookies.
func (h *Handlers) SignIn(c *fiber.Ctx) error {
	var req SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return auth.ErrValidation.WithMessage("invalid request body")
	}

	session, err := h.auth.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.cookies.SetAccess(c, session.Tokens.AccessToken)
	h.cookies.SetRefresh(c, session.Tokens.RefreshToken)

	return c.Status(fiber.StatusOK).JSON(SignInResponse{
		Message: "Sign in successful.",
		User: SignInUser{
			ID:    session.User.ID,
			Email: session.User.Email,
			Name:  session.User.Name,
			Token: session.Tokens.AccessToken,
		},
	})
}

// RefreshToken rotates the refresh token cookie and issues a new access token.
func (h *Handlers) RefreshToken(c *fiber.Ctx) error {
	token := c.Cookies(RefreshTokenCookie)
	if token == "" {
		return auth.ErrTokenMissing.WithMessage("no refresh token provided")
	}

	pair, err := h.auth.Refresh(c.UserContext(), token)
	if err != nil {
		return err
	}

	h.cookies.SetAccess(c, pair.AccessToken)
	h.cookies.SetRefresh(c, pair.RefreshToken)

	return c.Status(fiber.StatusOK).JSON(RefreshResponse{
		AccessToken: pair.AccessToken,
	})
}

// SignOut revokes the session when possible and always clears both cookies.
func (h *Handlers) SignOut(c *fiber.Ctx) error {
	token := c.Cookies(RefreshTokenCookie)
	if token == "" {
		return auth.ErrValidation.WithMessage("no refresh token provided")
	}

	revoked, err := h.auth.SignOut(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, auth.ErrValidation) {
			return err
		}
		h.logger.Warn("sign-out could not reach the ledger", "error", err)
	}
	h.logger.Debug("sign-out", "revoked", revoked)

	h.cookies.Clear(c)
	return c.Status(fiber.StatusOK).JSON(MessageResponse{
		Message: "Sign out successful.",
	})
}

// Me returns the authenticated user.
func (h *Handlers) Me(c *fiber.Ctx, user *domain.Profile) error {
	return c.Status(fiber.StatusOK).JSON(MeResponse{
		User: user,
	})
}
