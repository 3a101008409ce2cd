package auth

import (
	"context"
	"testing"

	domain "github.com/example/session-auth/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndFind(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	user := createTestUser(t, env.repo, "alice@example.com")

	byID, err := env.repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)
	assert.False(t, byID.CreatedAt.IsZero())

	byEmail, err := env.repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	exists, err := env.repo.EmailExists(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = env.repo.EmailExists(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = env.repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = env.repo.FindByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	env := setupTestEnv(t)
	createTestUser(t, env.repo, "alice@example.com")

	err := env.repo.Create(context.Background(), &domain.User{
		ID:           "another-id",
		Email:        "alice@example.com",
		Name:         "Imposter",
		PasswordHash: "unused",
	})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestUserRepository_FindProfileByID(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, env.repo, "alice@example.com")

	profile, err := env.repo.FindProfileByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.ID)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Equal(t, "Test User", profile.Name)
	assert.Nil(t, profile.Image)
}

func TestUserRepository_UpdateAndDelete(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env.repo, "alice@example.com")
	createTestUser(t, env.repo, "bob@example.com")

	require.NoError(t, env.repo.Update(ctx, alice.ID, map[string]any{"name": "Alice"}))
	got, err := env.repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)

	err = env.repo.Update(ctx, alice.ID, map[string]any{"email": "bob@example.com"})
	assert.ErrorIs(t, err, ErrUserExists)

	err = env.repo.Update(ctx, "missing", map[string]any{"name": "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.ledger.Record(ctx, alice.ID, "some-refresh-token")
	require.NoError(t, err)

	require.NoError(t, env.repo.Delete(ctx, alice.ID))
	_, err = env.repo.FindByID(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	count, err := env.ledger.CountForUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, env.repo.Delete(ctx, alice.ID), ErrUserNotFound)
}
