package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	AccessSecret         string
	RefreshSecret        string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	Issuer               string
	Audience             string
}

// DefaultJWTConfig returns a configuration with the standard lifetimes and
// issuer/audience pair. Secrets are left empty and must be supplied.
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
		Issuer:               "jwt-auth-server",
		Audience:             "jwt-auth-frontend",
	}
}

// Claims represents the custom claims for both token kinds.
// Email is only populated for access tokens.
type Claims struct {
	UserID string    `json:"userId"`
	Email  string    `json:"email,omitempty"`
	Type   TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies access and refresh tokens. Each kind has its
// own secret, so one leaked secret cannot forge the other kind.
type TokenIssuer struct {
	config JWTConfig
	now    func() time.Time
}

// NewTokenIssuer creates a new TokenIssuer with the given configuration.
func NewTokenIssuer(config JWTConfig) (*TokenIssuer, error) {
	if config.AccessSecret == "" || config.RefreshSecret == "" {
		return nil, errors.New("access and refresh secrets are required")
	}
	if config.AccessSecret == config.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if config.AccessTokenDuration <= 0 || config.RefreshTokenDuration <= 0 {
		return nil, errors.New("token durations must be positive")
	}
	return &TokenIssuer{
		config: config,
		now:    time.Now,
	}, nil
}

// Issue signs a new token of the given kind. The email is embedded in access
// tokens only.
func (m *TokenIssuer) Issue(kind TokenKind, userID, email string) (string, error) {
	secret, ttl, err := m.params(kind)
	if err != nil {
		return "", err
	}

	now := m.now()
	claims := Claims{
		UserID: userID,
		Type:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.config.Issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{m.config.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if kind == KindAccess {
		claims.Email = email
	}

	return m.sign(claims, secret)
}

func (m *TokenIssuer) sign(claims Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", claims.Type, err)
	}
	return signed, nil
}

// Verify checks signature, expiry and the issuer/audience pair with the
// kind-specific secret, then requires the type claim to equal kind.
func (m *TokenIssuer) Verify(kind TokenKind, tokenString string) (*Claims, error) {
	secret, _, err := m.params(kind)
	if err != nil {
		return nil, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenMalformed
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, classifyJWTError(err)
	}
	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	if claims.Type != kind {
		return nil, ErrInvalidTokenType
	}
	if claims.UserID == "" {
		return nil, ErrTokenMalformed.WithMessage("token carries no user")
	}

	return claims, nil
}

// AccessTokenDuration returns the access token lifetime.
func (m *TokenIssuer) AccessTokenDuration() time.Duration {
	return m.config.AccessTokenDuration
}

// RefreshTokenDuration returns the refresh token lifetime.
func (m *TokenIssuer) RefreshTokenDuration() time.Duration {
	return m.config.RefreshTokenDuration
}

func (m *TokenIssuer) params(kind TokenKind) (string, time.Duration, error) {
	switch kind {
	case KindAccess:
		return m.config.AccessSecret, m.config.AccessTokenDuration, nil
	case KindRefresh:
		return m.config.RefreshSecret, m.config.RefreshTokenDuration, nil
	default:
		return "", 0, ErrInvalidTokenType.WithMessage(fmt.Sprintf("unknown token kind %q", kind))
	}
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired.WithCause(err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrWrongIssuer.WithCause(err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrWrongAudience.WithCause(err)
	default:
		return ErrTokenMalformed.WithCause(err)
	}
}
