package mail

import (
	"github.com/tech-arch1tect/authstarter/config"
	"github.com/tech-arch1tect/authstarter/services/logging"
	"go.uber.org/fx"
)

// ProvideMailService returns nil when SMTP is not configured; the notifier
// falls back to another driver in that case.
func ProvideMailService(cfg *config.Config, logger *logging.Service) (*Service, error) {
	if !cfg.Mail.Configured() {
		return nil, nil
	}
	return NewService(&cfg.Mail, logger)
}

var Module = fx.Options(
	fx.Provide(ProvideMailService),
)
