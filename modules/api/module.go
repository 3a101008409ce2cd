package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/example/session-auth/config"
	"github.com/example/session-auth/modules/auth"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

const hstsMaxAge = 365 * 24 * 60 * 60

// APIModule is the HTTP API module.
type APIModule struct {
	cfg         config.Config
	logger      *slog.Logger
	app         *fiber.App
	authAdapter auth.AuthPort
	redis       *redis.Client
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(cfg config.Config, log *slog.Logger) *APIModule {
	if log == nil {
		log = slog.Default()
	}
	return &APIModule{
		cfg:    cfg,
		logger: log.With("module", "api"),
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authAdapter = auth.NewAuthAdapter(container)
	}
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(ctx context.Context) error {
	if m.authAdapter == nil {
		return errors.New("auth dependency not set")
	}

	var limiter *SignInLimiter
	if m.cfg.Redis.Addr != "" {
		m.redis = redis.NewClient(&redis.Options{
			Addr:     m.cfg.Redis.Addr,
			Password: m.cfg.Redis.Password,
			DB:       m.cfg.Redis.DB,
		})
		if err := m.redis.Ping(ctx).Err(); err != nil {
			m.logger.Warn("redis unreachable, sign-in limiter will fail open", "addr", m.cfg.Redis.Addr, "error", err)
		}
		limiter = NewSignInLimiter(m.redis, m.cfg.SignIn.Limit, m.cfg.SignIn.Window)
	}

	m.app = NewApp(m.cfg, m.authAdapter, limiter, m.logger)

	go func() {
		if err := m.app.Listen(m.cfg.Addr()); err != nil {
			m.logger.Error("HTTP server error", "error", err)
		}
	}()

	m.logger.Info("HTTP server started", "addr", m.cfg.Addr(), "sign_in_limiter", limiter != nil)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(_ context.Context) error {
	var errs []error
	if m.app != nil {
		m.logger.Info("shutting down HTTP server")
		errs = append(errs, m.app.Shutdown())
	}
	if m.redis != nil {
		errs = append(errs, m.redis.Close())
	}
	return errors.Join(errs...)
}

// Health returns the health status of the module.
func (m *APIModule) Health(ctx context.Context) mono.HealthStatus {
	details := map[string]any{
		"port": m.cfg.Port,
	}
	if m.redis != nil {
		if err := m.redis.Ping(ctx).Err(); err != nil {
			details["redis"] = fmt.Sprintf("unreachable: %v", err)
		} else {
			details["redis"] = "ok"
		}
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

// NewApp builds the fiber application with its middleware and routes. A nil
// limiter disables sign-in rate limiting.
func NewApp(cfg config.Config, port auth.AuthPort, limiter *SignInLimiter, log *slog.Logger) *fiber.App {
	production := cfg.IsProduction()

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          NewErrorHandler(production, log),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		Output: os.Stdout,
	}))

	app.Use(helmet.New())
	if production {
		// helmet only emits HSTS for https requests; TLS ends at the proxy.
		hsts := fmt.Sprintf("max-age=%d; includeSubDomains; preload", hstsMaxAge)
		app.Use(func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderStrictTransportSecurity, hsts)
			return c.Next()
		})
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.CORSOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: len(cfg.CORSOrigins) > 0,
	}))

	setupRoutes(app, cfg, port, limiter, log)
	return app
}

// setupRoutes configures all API routes.
func setupRoutes(app *fiber.App, cfg config.Config, port auth.AuthPort, limiter *SignInLimiter, log *slog.Logger) {
	cookies := NewCookiePolicy(cfg.IsProduction(), cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	handlers := NewHandlers(port, cookies, log)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(MessageResponse{Message: "API is healthy"})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"module": "api",
		})
	})

	authRoutes := app.Group(cfg.APIPrefix + "/auth")
	authRoutes.Post("/sign-up", handlers.SignUp)
	if limiter != nil {
		authRoutes.Post("/sign-in", limiter.Middleware(log), handlers.SignIn)
	} else {
		authRoutes.Post("/sign-in", handlers.SignIn)
	}
	authRoutes.Post("/refresh-token", handlers.RefreshToken)
	authRoutes.Post("/sign-out", handlers.SignOut)
	authRoutes.Get("/me", Gate(port, log), WithUser(handlers.Me))
}
