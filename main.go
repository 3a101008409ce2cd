package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/example/session-auth/config"
	"github.com/example/session-auth/modules/api"
	"github.com/example/session-auth/modules/auth"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	// Order: independent modules first, then dependent modules
	app.Register(auth.NewModule(cfg, logger))
	app.Register(api.NewModule(cfg, logger))

	if err := app.Start(context.Background()); err != nil {
		logger.Error("failed to start application", "error", err)
		os.Exit(1)
	}

	logger.Info("session auth server started",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"routes", cfg.APIPrefix+"/auth/{sign-up,sign-in,refresh-token,sign-out,me}",
	)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				logger.Info("graceful shutdown initiated")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	logger.Info("application exited", "code", exitCode)
	os.Exit(exitCode)
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	if !cfg.IsProduction() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
