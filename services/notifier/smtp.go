package notifier

import (
	"context"

	"github.com/tech-arch1tect/authstarter/services/mail"
)

type SMTPNotifier struct {
	mail *mail.Service
}

func NewSMTPNotifier(mailService *mail.Service) *SMTPNotifier {
	return &SMTPNotifier{mail: mailService}
}

func (n *SMTPNotifier) Name() string { return "smtp" }

func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if err := n.mail.SendHTML(ctx, msg.To, msg.Subject, msg.HTML, msg.Text); err != nil {
		return &DeliveryError{Driver: n.Name(), Err: err}
	}
	return nil
}
