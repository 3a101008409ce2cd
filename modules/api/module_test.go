package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/session-auth/config"
	"github.com/example/session-auth/modules/auth"
	"github.com/go-monolith/mono"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startMonoApp runs the auth and api modules on an in-process bus, the way
// main wires them.
func startMonoApp(t *testing.T) *APIModule {
	t.Helper()

	dir := t.TempDir()
	cfg, err := config.FromLookup(func(key string) (string, bool) {
		switch key {
		case "JWT_SECRET":
			return "test-access-secret", true
		case "JWT_REFRESH_SECRET":
			return "test-refresh-secret", true
		case "DATABASE_URL":
			return filepath.Join(dir, "mono.db"), true
		case "PORT":
			return "0", true
		case "BCRYPT_COST":
			return "4", true
		}
		return "", false
	})
	require.NoError(t, err)

	app, err := mono.NewMonoApplication(
		mono.WithLogLevel(mono.LogLevelError),
		mono.WithNATSDontListen(),
		mono.WithNATSInProcessConn(),
		mono.WithJetStreamStorageDir(filepath.Join(dir, "jetstream")),
		mono.WithShutdownTimeout(5*time.Second),
	)
	require.NoError(t, err)

	apiModule := NewModule(cfg, discardLogger())
	require.NoError(t, app.Register(auth.NewModule(cfg, discardLogger())))
	require.NoError(t, app.Register(apiModule))

	require.NoError(t, app.Start(context.Background()))
	t.Cleanup(func() {
		_ = app.Stop(context.Background())
	})

	require.NotNil(t, apiModule.authAdapter)
	require.NotNil(t, apiModule.app)
	return apiModule
}

func TestAuthAdapter_OverBus(t *testing.T) {
	m := startMonoApp(t)
	port := m.authAdapter
	ctx := context.Background()

	profile, err := port.SignUp(ctx, auth.SignUpInput{Name: "Alice", Email: "alice@example.com", Password: "Passw0rd!"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.NotEmpty(t, profile.ID)

	_, err = port.SignUp(ctx, auth.SignUpInput{Name: "Alice", Email: "alice@example.com", Password: "Passw0rd!"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrUserExists))
	assert.Equal(t, auth.KindConflict, auth.AsError(err).Kind)

	_, err = port.SignIn(ctx, "alice@example.com", "wrong-pass")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	session, err := port.SignIn(ctx, "alice@example.com", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, profile.ID, session.User.ID)

	user, err := port.Authenticate(ctx, session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	pair, err := port.Refresh(ctx, session.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.Tokens.RefreshToken, pair.RefreshToken)

	_, err = port.Refresh(ctx, session.Tokens.RefreshToken)
	require.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
	assert.Equal(t, auth.KindAuthentication, auth.AsError(err).Kind)

	revoked, err := port.SignOut(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = port.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
}

func TestAPIModule_SessionLifecycle(t *testing.T) {
	m := startMonoApp(t)
	app := m.app

	resp := send(t, app, "POST", "/api/v1/auth/sign-up",
		`{"name":"Alice","email":"alice@example.com","password":"Passw0rd!"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = send(t, app, "POST", "/api/v1/auth/sign-up",
		`{"name":"Alice","email":"alice@example.com","password":"Passw0rd!"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "user_exists", decode[ErrorResponse](t, resp).Error)

	resp = send(t, app, "POST", "/api/v1/auth/sign-in",
		`{"email":"alice@example.com","password":"Passw0rd!"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	access := cookieByName(resp, AccessTokenCookie)
	refresh := cookieByName(resp, RefreshTokenCookie)
	require.NotNil(t, access)
	require.NotNil(t, refresh)

	resp = send(t, app, "GET", "/api/v1/auth/me", "", access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice@example.com", decode[MeResponse](t, resp).User.Email)

	resp = send(t, app, "POST", "/api/v1/auth/refresh-token", "", refresh)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	newRefresh := cookieByName(resp, RefreshTokenCookie)
	require.NotNil(t, newRefresh)

	resp = send(t, app, "POST", "/api/v1/auth/refresh-token", "", refresh)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_refresh_token", decode[ErrorResponse](t, resp).Error)

	resp = send(t, app, "POST", "/api/v1/auth/sign-out", "", newRefresh)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = send(t, app, "POST", "/api/v1/auth/refresh-token", "", newRefresh)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
