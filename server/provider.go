package server

import (
	"context"

	"github.com/tech-arch1tect/authstarter/config"
	"github.com/tech-arch1tect/authstarter/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(RegisterLifecycle),
)

// RegisterLifecycle serves HTTP for the lifetime of the fx app. A listener
// failure after start shuts the whole app down.
func RegisterLifecycle(lc fx.Lifecycle, shutdowner fx.Shutdowner, srv *Server, cfg *config.Config, logger *logging.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("http server stopped unexpectedly", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cfg.Server.ShutdownTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
				defer cancel()
			}
			return srv.Shutdown(ctx)
		},
	})
}
