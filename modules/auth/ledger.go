package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	domain "github.com/example/session-auth/domain/user"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshTokenLedger stores salted hashes of issued refresh tokens, one row
// per session. A refresh token is only usable while a row matches it.
type RefreshTokenLedger struct {
	db     *gorm.DB
	hasher *PasswordHasher
}

// NewRefreshTokenLedger creates a new RefreshTokenLedger.
func NewRefreshTokenLedger(db *gorm.DB, hasher *PasswordHasher) *RefreshTokenLedger {
	return &RefreshTokenLedger{
		db:     db,
		hasher: hasher,
	}
}

// digest reduces a raw token to a fixed-size value before bcrypt, which only
// reads the first 72 bytes of its input.
func digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (l *RefreshTokenLedger) hash(raw string) (string, error) {
	hash, err := l.hasher.Hash(digest(raw))
	if err != nil {
		return "", fmt.Errorf("failed to hash refresh token: %w", err)
	}
	return hash, nil
}

// Record inserts a new ledger row for userID holding the hash of raw.
func (l *RefreshTokenLedger) Record(ctx context.Context, userID, raw string) (*domain.RefreshToken, error) {
	hash, err := l.hash(raw)
	if err != nil {
		return nil, err
	}

	record := &domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: hash,
	}
	if err := l.db.WithContext(ctx).Omit("User").Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to record refresh token: %w", err)
	}
	return record, nil
}

// FindMatch loads every row of userID and returns the first whose hash
// matches raw, or nil when none does.
func (l *RefreshTokenLedger) FindMatch(ctx context.Context, userID, raw string) (*domain.RefreshToken, error) {
	var records []domain.RefreshToken
	if err := l.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load refresh tokens: %w", err)
	}

	d := digest(raw)
	for i := range records {
		if l.hasher.Verify(d, records[i].TokenHash) {
			return &records[i], nil
		}
	}
	return nil, nil
}

// Revoke deletes the row. Deleting a row that is already gone is not an error.
func (l *RefreshTokenLedger) Revoke(ctx context.Context, recordID string) error {
	if err := l.db.WithContext(ctx).Delete(&domain.RefreshToken{}, "id = ?", recordID).Error; err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// Rotate replaces the stored hash of an existing row with the hash of newRaw.
// The previous raw token stops matching once this returns.
func (l *RefreshTokenLedger) Rotate(ctx context.Context, recordID, newRaw string) error {
	hash, err := l.hash(newRaw)
	if err != nil {
		return err
	}

	result := l.db.WithContext(ctx).
		Model(&domain.RefreshToken{}).
		Where("id = ?", recordID).
		Updates(map[string]any{
			"token_hash": hash,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to rotate refresh token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvalidRefreshToken.WithMessage("refresh token record no longer exists")
	}
	return nil
}

// PruneExpired deletes rows not written since cutoff. Such rows can only hold
// hashes of tokens that have already expired.
func (l *RefreshTokenLedger) PruneExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result := l.db.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&domain.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune refresh tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountForUser returns the number of live rows for userID.
func (l *RefreshTokenLedger) CountForUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := l.db.WithContext(ctx).Model(&domain.RefreshToken{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count refresh tokens: %w", err)
	}
	return count, nil
}
