package sweeper

import (
	"context"

	"github.com/tech-arch1tect/authstarter/config"
	"github.com/tech-arch1tect/authstarter/services/logging"
	"github.com/tech-arch1tect/authstarter/services/otp"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Invoke(RegisterSweeper),
)

func RegisterSweeper(lc fx.Lifecycle, cfg *config.Config, service *otp.Service, logger *logging.Service) error {
	if !cfg.OTP.CleanupEnabled {
		logger.Info("expired code sweeper disabled")
		return nil
	}

	s, err := New(service, cfg.OTP.CleanupSchedule, logger.Named("sweeper"))
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
	return nil
}
