package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/session-auth/config"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AuthModule provides authentication services.
type AuthModule struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *gorm.DB
	service *Service

	stopPrune context.CancelFunc
	pruneWG   sync.WaitGroup
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule.
func NewModule(cfg config.Config, log *slog.Logger) *AuthModule {
	if log == nil {
		log = slog.Default()
	}
	return &AuthModule{
		cfg:    cfg,
		logger: log.With("module", "auth"),
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// Start opens the database and builds the service.
func (m *AuthModule) Start(_ context.Context) error {
	logLevel := logger.Silent
	if !m.cfg.IsProduction() {
		logLevel = logger.Warn
	}

	db, err := OpenDatabase(m.cfg.Database, logLevel)
	if err != nil {
		return err
	}
	m.db = db

	tokens, err := NewTokenIssuer(JWTConfig{
		AccessSecret:         m.cfg.JWT.AccessSecret,
		RefreshSecret:        m.cfg.JWT.RefreshSecret,
		AccessTokenDuration:  m.cfg.JWT.AccessTokenTTL,
		RefreshTokenDuration: m.cfg.JWT.RefreshTokenTTL,
		Issuer:               m.cfg.JWT.Issuer,
		Audience:             m.cfg.JWT.Audience,
	})
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}

	hasher := NewPasswordHasher(m.cfg.BcryptCost)
	m.service = NewService(
		NewUserRepository(db),
		NewRefreshTokenLedger(db, hasher),
		hasher,
		tokens,
		m.logger,
	)

	if m.cfg.LedgerPruneInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		m.stopPrune = cancel
		m.pruneWG.Add(1)
		go m.pruneLoop(ctx, m.cfg.LedgerPruneInterval)
	}

	m.logger.Info("module started", "driver", m.cfg.Database.Driver)
	return nil
}

// Stop shuts down the module.
func (m *AuthModule) Stop(_ context.Context) error {
	if m.stopPrune != nil {
		m.stopPrune()
		m.pruneWG.Wait()
	}
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				m.logger.Warn("failed to close database", "error", err)
			}
		}
	}
	m.logger.Info("module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": m.cfg.Database.Driver,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceSignUp,
		json.Unmarshal,
		json.Marshal,
		m.handleSignUp,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceSignUp, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceSignIn,
		json.Unmarshal,
		json.Marshal,
		m.handleSignIn,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceSignIn, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceRefreshToken,
		json.Unmarshal,
		json.Marshal,
		m.handleRefresh,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRefreshToken, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceSignOut,
		json.Unmarshal,
		json.Marshal,
		m.handleSignOut,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceSignOut, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceAuthenticate,
		json.Unmarshal,
		json.Marshal,
		m.handleAuthenticate,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceAuthenticate, err)
	}

	m.logger.Info("registered services", "services", []string{
		ServiceSignUp, ServiceSignIn, ServiceRefreshToken, ServiceSignOut, ServiceAuthenticate,
	})
	return nil
}

func (m *AuthModule) handleSignUp(ctx context.Context, req SignUpInput, _ *mono.Msg) (SignUpResponse, error) {
	profile, err := m.service.SignUp(ctx, req)
	return SignUpResponse{User: profile, Error: Payload(err)}, nil
}

func (m *AuthModule) handleSignIn(ctx context.Context, req SignInRequest, _ *mono.Msg) (SignInResponse, error) {
	session, err := m.service.SignIn(ctx, req.Email, req.Password)
	return SignInResponse{Session: session, Error: Payload(err)}, nil
}

func (m *AuthModule) handleRefresh(ctx context.Context, req RefreshRequest, _ *mono.Msg) (RefreshResponse, error) {
	tokens, err := m.service.Refresh(ctx, req.RefreshToken)
	return RefreshResponse{Tokens: tokens, Error: Payload(err)}, nil
}

func (m *AuthModule) handleSignOut(ctx context.Context, req SignOutRequest, _ *mono.Msg) (SignOutResponse, error) {
	revoked, err := m.service.SignOut(ctx, req.RefreshToken)
	return SignOutResponse{Revoked: revoked, Error: Payload(err)}, nil
}

func (m *AuthModule) handleAuthenticate(ctx context.Context, req AuthenticateRequest, _ *mono.Msg) (AuthenticateResponse, error) {
	profile, err := m.service.Authenticate(ctx, req.Token)
	return AuthenticateResponse{User: profile, Error: Payload(err)}, nil
}

func (m *AuthModule) pruneLoop(ctx context.Context, interval time.Duration) {
	defer m.pruneWG.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.service.PruneLedger(ctx)
			if err != nil {
				m.logger.Warn("ledger prune failed", "error", err)
				continue
			}
			if n > 0 {
				m.logger.Info("pruned stale refresh tokens", "count", n)
			}
		}
	}
}
