package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tech-arch1tect/authstarter/config"
	"github.com/tech-arch1tect/authstarter/server"
	"github.com/tech-arch1tect/authstarter/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const startTimeout = 15 * time.Second

type App struct {
	fx     *fx.App
	config *config.Config
	logger *logging.Service
	server *server.Server
}

// New builds an application from cfg, loading configuration from the
// environment when cfg is nil.
func New(cfg *config.Config) (*App, error) {
	b := NewApp()
	if cfg != nil {
		b.WithConfig(cfg)
	}
	return b.Build()
}

func (a *App) Start(ctx context.Context) error {
	return a.fx.Start(ctx)
}

func (a *App) Stop(ctx context.Context) error {
	return a.fx.Stop(ctx)
}

// Run starts the application and blocks until SIGINT, SIGTERM or an fx
// shutdown request, then stops it within the configured shutdown timeout.
func (a *App) Run() error {
	startCtx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		a.logger.Info("received shutdown signal, stopping gracefully", zap.String("signal", sig.String()))
	case sig := <-a.fx.Wait():
		a.logger.Info("shutdown requested", zap.Int("exit_code", sig.ExitCode))
	}

	timeout := a.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), timeout)
	defer stopCancel()

	if err := a.Stop(stopCtx); err != nil {
		a.logger.Error("failed to stop application gracefully", zap.Error(err))
		return err
	}
	return nil
}

func (a *App) Server() *server.Server {
	return a.server
}

func (a *App) Logger() *logging.Service {
	return a.logger
}

func (a *App) Config() *config.Config {
	return a.config
}
