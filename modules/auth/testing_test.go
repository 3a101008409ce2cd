package auth

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/session-auth/config"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := OpenDatabase(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		URL:    filepath.Join(t.TempDir(), "auth.db"),
	}, logger.Silent)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type testEnv struct {
	db      *gorm.DB
	repo    *UserRepository
	ledger  *RefreshTokenLedger
	hasher  *PasswordHasher
	tokens  *TokenIssuer
	service *Service
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	hasher := NewPasswordHasher(bcrypt.MinCost)
	tokens := newTestIssuer(t, testJWTConfig())
	repo := NewUserRepository(db)
	ledger := NewRefreshTokenLedger(db, hasher)

	return &testEnv{
		db:      db,
		repo:    repo,
		ledger:  ledger,
		hasher:  hasher,
		tokens:  tokens,
		service: NewService(repo, ledger, hasher, tokens, slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
}
