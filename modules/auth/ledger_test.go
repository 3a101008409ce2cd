package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	domain "github.com/example/session-auth/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestUser(t *testing.T, repo *UserRepository, email string) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:           "user-" + email,
		Email:        email,
		Name:         "Test User",
		PasswordHash: "unused",
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestLedger_RecordStoresHashOnly(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	user := createTestUser(t, env.repo, "alice@example.com")

	raw, err := env.tokens.Issue(KindRefresh, user.ID, "")
	require.NoError(t, err)

	record, err := env.ledger.Record(ctx, user.ID, raw)
	require.NoError(t, err)

	var stored domain.RefreshToken
	require.NoError(t, env.db.First(&stored, "id = ?", record.ID).Error)
	assert.Equal(t, user.ID, stored.UserID)
	assert.NotEqual(t, raw, stored.TokenHash)
	assert.NotContains(t, stored.TokenHash, raw)
	assert.True(t, strings.HasPrefix(stored.TokenHash, "$2"), "expected a bcrypt hash, got %q", stored.TokenHash)
}

func TestLedger_FindMatch(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env.repo, "alice@example.com")
	bob := createTestUser(t, env.repo, "bob@example.com")

	laptop, _ := env.tokens.Issue(KindRefresh, alice.ID, "")
	phone, _ := env.tokens.Issue(KindRefresh, alice.ID, "")
	bobs, _ := env.tokens.Issue(KindRefresh, bob.ID, "")

	laptopRec, err := env.ledger.Record(ctx, alice.ID, laptop)
	require.NoError(t, err)
	phoneRec, err := env.ledger.Record(ctx, alice.ID, phone)
	require.NoError(t, err)
	_, err = env.ledger.Record(ctx, bob.ID, bobs)
	require.NoError(t, err)

	tests := []struct {
		name   string
		userID string
		raw    string
		wantID string
	}{
		{name: "first session", userID: alice.ID, raw: laptop, wantID: laptopRec.ID},
		{name: "second session", userID: alice.ID, raw: phone, wantID: phoneRec.ID},
		{name: "other user's token", userID: alice.ID, raw: bobs},
		{name: "unknown token", userID: alice.ID, raw: "not-a-token"},
		{name: "user without sessions", userID: "nobody", raw: laptop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.ledger.FindMatch(ctx, tt.userID, tt.raw)
			require.NoError(t, err)
			if tt.wantID == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestLedger_RotateIsSingleUse(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	user := createTestUser(t, env.repo, "alice@example.com")

	old, _ := env.tokens.Issue(KindRefresh, user.ID, "")
	record, err := env.ledger.Record(ctx, user.ID, old)
	require.NoError(t, err)

	next, _ := env.tokens.Issue(KindRefresh, user.ID, "")
	require.NotEqual(t, old, next)
	require.NoError(t, env.ledger.Rotate(ctx, record.ID, next))

	replay, err := env.ledger.FindMatch(ctx, user.ID, old)
	require.NoError(t, err)
	assert.Nil(t, replay, "rotated-out token must not match")

	current, err := env.ledger.FindMatch(ctx, user.ID, next)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, record.ID, current.ID, "rotation keeps the record id")

	count, err := env.ledger.CountForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestLedger_RotateMissingRecord(t *testing.T) {
	env := setupTestEnv(t)

	err := env.ledger.Rotate(context.Background(), "missing", "whatever")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestLedger_Revoke(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	user := createTestUser(t, env.repo, "alice@example.com")

	raw, _ := env.tokens.Issue(KindRefresh, user.ID, "")
	record, err := env.ledger.Record(ctx, user.ID, raw)
	require.NoError(t, err)

	require.NoError(t, env.ledger.Revoke(ctx, record.ID))

	got, err := env.ledger.FindMatch(ctx, user.ID, raw)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, env.ledger.Revoke(ctx, record.ID), "revoking twice is harmless")
}

func TestLedger_PruneExpired(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	user := createTestUser(t, env.repo, "alice@example.com")

	stale, _ := env.tokens.Issue(KindRefresh, user.ID, "")
	fresh, _ := env.tokens.Issue(KindRefresh, user.ID, "")

	staleRec, err := env.ledger.Record(ctx, user.ID, stale)
	require.NoError(t, err)
	_, err = env.ledger.Record(ctx, user.ID, fresh)
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&domain.RefreshToken{}).
		Where("id = ?", staleRec.ID).
		UpdateColumn("updated_at", time.Now().Add(-8*24*time.Hour)).Error)

	n, err := env.ledger.PruneExpired(ctx, time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := env.ledger.FindMatch(ctx, user.ID, fresh)
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = env.ledger.FindMatch(ctx, user.ID, stale)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDigest(t *testing.T) {
	a := digest("token-a")
	assert.Len(t, a, 64)
	assert.Equal(t, a, digest("token-a"))
	assert.NotEqual(t, a, digest("token-b"))

	// Tokens sharing a long prefix still hash apart.
	prefix := strings.Repeat("x", 100)
	assert.NotEqual(t, digest(prefix+"1"), digest(prefix+"2"))
}
