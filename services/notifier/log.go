package notifier

import (
	"context"

	"github.com/tech-arch1tect/authstarter/services/logging"
	"go.uber.org/zap"
)

// LogNotifier writes messages to the log instead of delivering them. It is
// selected when no mail transport is configured. With redact set the body is
// left out, so codes never reach production logs.
type LogNotifier struct {
	logger *logging.Service
	redact bool
}

func NewLogNotifier(logger *logging.Service, redact bool) *LogNotifier {
	return &LogNotifier{logger: logger, redact: redact}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	fields := []zap.Field{
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	}
	if !n.redact {
		fields = append(fields, zap.String("body", msg.Text))
	}
	n.logger.Info("email delivery disabled, logging message", fields...)
	return nil
}
