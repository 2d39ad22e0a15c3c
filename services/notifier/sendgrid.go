package notifier

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/tech-arch1tect/authstarter/config"
)

// SendGridClient is satisfied by *sendgrid.Client.
type SendGridClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

type SendGridNotifier struct {
	client  SendGridClient
	from    *sgmail.Email
	sandbox bool
}

func NewSendGridNotifier(cfg config.SendGridConfig) *SendGridNotifier {
	return NewSendGridNotifierWithClient(cfg, sendgrid.NewSendClient(cfg.APIKey))
}

func NewSendGridNotifierWithClient(cfg config.SendGridConfig, client SendGridClient) *SendGridNotifier {
	return &SendGridNotifier{
		client:  client,
		from:    sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
		sandbox: cfg.SandboxMode,
	}
}

func (n *SendGridNotifier) Name() string { return "sendgrid" }

func (n *SendGridNotifier) Send(ctx context.Context, msg Message) error {
	message := sgmail.NewSingleEmail(n.from, msg.Subject, sgmail.NewEmail("", msg.To), msg.Text, msg.HTML)
	if n.sandbox {
		settings := sgmail.NewMailSettings()
		settings.SetSandboxMode(sgmail.NewSetting(true))
		message.MailSettings = settings
	}

	resp, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return &DeliveryError{Driver: n.Name(), Err: err}
	}
	if resp.StatusCode >= 300 {
		return &DeliveryError{
			Driver: n.Name(),
			Err:    fmt.Errorf("unexpected status %d: %s", resp.StatusCode, resp.Body),
		}
	}
	return nil
}
