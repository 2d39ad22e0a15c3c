package notifier

import (
	"fmt"

	"github.com/tech-arch1tect/authstarter/config"
	"github.com/tech-arch1tect/authstarter/services/logging"
	"github.com/tech-arch1tect/authstarter/services/mail"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(ProvideNotifier),
	fx.Provide(ProvideComposer),
)

// ProvideNotifier picks the delivery driver once at startup. The auto driver
// prefers SendGrid, then SMTP, and logs messages when neither is configured.
func ProvideNotifier(cfg *config.Config, mailService *mail.Service, logger *logging.Service) (Notifier, error) {
	n, err := selectNotifier(cfg, mailService, logger)
	if err != nil {
		return nil, err
	}

	if n.Name() == "log" && !cfg.IsProduction() {
		logger.Warn("no email transport configured, verification codes will only be logged")
	}
	logger.Info("notifier selected", zap.String("driver", n.Name()))
	return n, nil
}

func selectNotifier(cfg *config.Config, mailService *mail.Service, logger *logging.Service) (Notifier, error) {
	switch cfg.Notifier.Driver {
	case config.NotifierSendGrid:
		return NewSendGridNotifier(cfg.SendGrid), nil
	case config.NotifierSMTP:
		if mailService == nil {
			return nil, fmt.Errorf("smtp notifier requires a configured mail service")
		}
		return NewSMTPNotifier(mailService), nil
	case config.NotifierLog:
		return NewLogNotifier(logger, cfg.IsProduction()), nil
	case config.NotifierAuto, "":
		switch {
		case cfg.SendGrid.Configured():
			return NewSendGridNotifier(cfg.SendGrid), nil
		case mailService != nil:
			return NewSMTPNotifier(mailService), nil
		default:
			return NewLogNotifier(logger, cfg.IsProduction()), nil
		}
	default:
		return nil, fmt.Errorf("unsupported notifier driver: %s", cfg.Notifier.Driver)
	}
}

func ProvideComposer(cfg *config.Config) (*Composer, error) {
	return NewComposer(cfg.App.Name, cfg.OTP.TTL, cfg.Mail.TemplatesDir)
}
