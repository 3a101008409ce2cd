package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	domain "github.com/example/session-auth/domain/user"
	"github.com/google/uuid"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLength = 72
)

// SignUpInput carries the registration fields.
type SignUpInput struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Image    *string `json:"image,omitempty"`
}

// Service implements the session lifecycle: registration, sign-in, refresh
// rotation, sign-out and access-token authentication.
type Service struct {
	repo   *UserRepository
	ledger *RefreshTokenLedger
	hasher *PasswordHasher
	tokens *TokenIssuer
	logger *slog.Logger
	now    func() time.Time
}

var _ AuthPort = (*Service)(nil)

// NewService creates a new Service.
func NewService(repo *UserRepository, ledger *RefreshTokenLedger, hasher *PasswordHasher, tokens *TokenIssuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		ledger: ledger,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
}

// SignUp creates a new user account. No tokens are issued.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*domain.Profile, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, ErrValidation.WithMessage("name, email, and password are required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, ErrValidation.WithMessage("invalid email format")
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrValidation.WithMessage("password must be at least 8 characters")
	}
	if len(in.Password) > maxPasswordLength {
		return nil, ErrValidation.WithMessage("password must be at most 72 characters")
	}

	exists, err := s.repo.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, internalError("failed to check email existence", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, internalError("failed to hash password", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: passwordHash,
		Image:        in.Image,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, internalError("failed to create user", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user.Profile(), nil
}

// SignIn checks the credentials, issues a token pair and records the refresh
// token as a new session. Existing sessions of the user are left alone.
func (s *Service) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrValidation.WithMessage("email and password are required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.hasher.CompareDecoy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, internalError("failed to find user", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.Record(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, internalError("failed to store refresh token", err)
	}

	s.logger.Info("user signed in", "user_id", user.ID)
	return &domain.Session{
		User:   user.Profile(),
		Tokens: *pair,
	}, nil
}

// Refresh exchanges a live refresh token for a new pair. The matched ledger
// row is rotated in place, so the presented token cannot be replayed.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrTokenMissing.WithMessage("no refresh token provided")
	}

	claims, err := s.tokens.Verify(KindRefresh, refreshToken)
	if err != nil {
		s.logger.Debug("refresh token rejected", "error", err)
		return nil, err
	}

	record, err := s.ledger.FindMatch(ctx, claims.UserID, refreshToken)
	if err != nil {
		return nil, internalError("failed to look up refresh token", err)
	}
	if record == nil {
		s.logger.Debug("refresh token has no ledger match", "user_id", claims.UserID)
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			if rerr := s.ledger.Revoke(ctx, record.ID); rerr != nil {
				s.logger.Warn("failed to revoke orphaned refresh token", "record_id", record.ID, "error", rerr)
			}
			return nil, ErrInvalidRefreshToken
		}
		return nil, internalError("failed to find user", err)
	}

	pair, err := s.issuePair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Rotate(ctx, record.ID, pair.RefreshToken); err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			return nil, err
		}
		return nil, internalError("failed to rotate refresh token", err)
	}

	s.logger.Debug("refresh token rotated", "user_id", user.ID, "record_id", record.ID)
	return pair, nil
}

// SignOut deletes the ledger row matching refreshToken, if any. It reports
// whether a row was removed. Verification and lookup failures are logged and
// swallowed; only a missing token is an error.
func (s *Service) SignOut(ctx context.Context, refreshToken string) (bool, error) {
	if refreshToken == "" {
		return false, ErrValidation.WithMessage("no refresh token provided")
	}

	claims, err := s.tokens.Verify(KindRefresh, refreshToken)
	if err != nil {
		s.logger.Debug("sign-out with unusable refresh token", "error", err)
		return false, nil
	}

	record, err := s.ledger.FindMatch(ctx, claims.UserID, refreshToken)
	if err != nil {
		s.logger.Warn("sign-out lookup failed", "user_id", claims.UserID, "error", err)
		return false, nil
	}
	if record == nil {
		return false, nil
	}

	if err := s.ledger.Revoke(ctx, record.ID); err != nil {
		s.logger.Warn("sign-out revoke failed", "record_id", record.ID, "error", err)
		return false, nil
	}

	s.logger.Info("user signed out", "user_id", claims.UserID)
	return true, nil
}

// Authenticate resolves an access token to the current user profile. It
// rejects tokens whose email no longer matches the stored user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*domain.Profile, error) {
	if accessToken == "" {
		return nil, ErrTokenMissing.WithMessage("access token missing")
	}

	claims, err := s.tokens.Verify(KindAccess, accessToken)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("access token decoded", "user_id", claims.UserID)

	profile, err := s.repo.FindProfileByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internalError("failed to load user", err)
	}

	if profile.Email != claims.Email {
		s.logger.Debug("access token email is stale", "user_id", claims.UserID)
		return nil, ErrStaleToken
	}

	s.logger.Debug("user resolved", "user_id", profile.ID)
	return profile, nil
}

// PruneLedger deletes ledger rows that cannot match a live refresh token.
func (s *Service) PruneLedger(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.tokens.RefreshTokenDuration())
	return s.ledger.PruneExpired(ctx, cutoff)
}

func (s *Service) issuePair(userID, email string) (*domain.TokenPair, error) {
	accessToken, err := s.tokens.Issue(KindAccess, userID, email)
	if err != nil {
		return nil, internalError("failed to generate access token", err)
	}

	refreshToken, err := s.tokens.Issue(KindRefresh, userID, "")
	if err != nil {
		return nil, internalError("failed to generate refresh token", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
