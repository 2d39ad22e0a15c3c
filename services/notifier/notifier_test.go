package notifier

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authstarter/config"
	"github.com/tech-arch1tect/authstarter/services/logging"
	"github.com/tech-arch1tect/authstarter/services/mail"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockSendGridClient struct {
	mock.Mock
}

func (m *mockSendGridClient) SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error) {
	args := m.Called(ctx, email)
	resp, _ := args.Get(0).(*rest.Response)
	return resp, args.Error(1)
}

type stubMailClient struct {
	err  error
	sent []*gomail.Msg
}

func (s *stubMailClient) DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error {
	s.sent = append(s.sent, messages...)
	return s.err
}

func TestComposer_Compose(t *testing.T) {
	composer, err := NewComposer("Auth Starter", 10*time.Minute, "")
	require.NoError(t, err)

	tests := []struct {
		purpose     string
		wantSubject string
		wantAction  string
	}{
		{purpose: "sign-in", wantSubject: "Your Login Verification Code", wantAction: "sign in"},
		{purpose: "sign-up", wantSubject: "Your Account Verification Code", wantAction: "verify your account"},
		{purpose: "email-verification", wantSubject: "Verify Your Email Address", wantAction: "verify your email address"},
		{purpose: "unknown", wantSubject: "Your Account Verification Code", wantAction: "verify your account"},
	}

	for _, tt := range tests {
		t.Run(tt.purpose, func(t *testing.T) {
			msg, err := composer.Compose("a@example.com", tt.purpose, "482913")

			require.NoError(t, err)
			assert.Equal(t, "a@example.com", msg.To)
			assert.Equal(t, tt.wantSubject, msg.Subject)
			assert.Equal(t, tt.wantSubject, Subject(tt.purpose))
			assert.Contains(t, msg.HTML, "482913")
			assert.Contains(t, msg.HTML, tt.wantAction)
			assert.Contains(t, msg.HTML, "expire in 10 minutes")
			assert.Contains(t, msg.Text, "482913")
			assert.Contains(t, msg.Text, tt.wantAction)
			assert.NotContains(t, msg.Text, "<")
		})
	}
}

func TestComposer_EscapesHTML(t *testing.T) {
	composer, err := NewComposer("<b>Shop</b>", 90*time.Second, "")
	require.NoError(t, err)

	msg, err := composer.Compose("a@example.com", "sign-in", "111111")

	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "&lt;b&gt;Shop&lt;/b&gt;")
	assert.Contains(t, msg.Text, "expire in 2 minutes")
}

func TestComposer_TemplatesDirOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, codeTemplateText), []byte("code={{.Code}}"), 0o600))

	composer, err := NewComposer("Auth Starter", 5*time.Minute, dir)
	require.NoError(t, err)

	msg, err := composer.Compose("a@example.com", "sign-up", "123456")

	require.NoError(t, err)
	assert.Equal(t, "code=123456", msg.Text)
	assert.Contains(t, msg.HTML, "123456", "html falls back to the built-in template")
}

func TestComposer_InvalidOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, codeTemplateHTML), []byte("{{.Code"), 0o600))

	_, err := NewComposer("Auth Starter", 5*time.Minute, dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse HTML template")
}

func TestLogNotifier(t *testing.T) {
	msg := Message{To: "a@example.com", Subject: "s", Text: "code 123456"}

	t.Run("logs the body", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		n := NewLogNotifier(logging.FromZap(zap.New(core)), false)

		err := n.Send(context.Background(), msg)

		require.NoError(t, err)
		assert.Equal(t, "log", n.Name())
		logs := recorded.TakeAll()
		require.Len(t, logs, 1)
		assert.Equal(t, "a@example.com", logs[0].ContextMap()["to"])
		assert.Equal(t, "code 123456", logs[0].ContextMap()["body"])
	})

	t.Run("redacted leaves the body out", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		n := NewLogNotifier(logging.FromZap(zap.New(core)), true)

		require.NoError(t, n.Send(context.Background(), msg))

		logs := recorded.TakeAll()
		require.Len(t, logs, 1)
		assert.Equal(t, "a@example.com", logs[0].ContextMap()["to"])
		assert.NotContains(t, logs[0].ContextMap(), "body")
	})
}

func TestSendGridNotifier(t *testing.T) {
	cfg := config.SendGridConfig{APIKey: "SG.test", FromAddress: "noreply@example.com", FromName: "Auth Starter", SandboxMode: true}
	msg := Message{To: "a@example.com", Subject: "Your Login Verification Code", HTML: "<p>1</p>", Text: "1"}

	t.Run("accepted", func(t *testing.T) {
		client := &mockSendGridClient{}
		client.On("SendWithContext", mock.Anything, mock.MatchedBy(func(m *sgmail.SGMailV3) bool {
			return m.Subject == msg.Subject &&
				m.From.Address == "noreply@example.com" &&
				m.Personalizations[0].To[0].Address == "a@example.com" &&
				*m.MailSettings.SandboxMode.Enable
		})).Return(&rest.Response{StatusCode: http.StatusAccepted}, nil)

		n := NewSendGridNotifierWithClient(cfg, client)

		require.NoError(t, n.Send(context.Background(), msg))
		client.AssertExpectations(t)
	})

	t.Run("rejected status", func(t *testing.T) {
		client := &mockSendGridClient{}
		client.On("SendWithContext", mock.Anything, mock.Anything).
			Return(&rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}, nil)

		err := NewSendGridNotifierWithClient(cfg, client).Send(context.Background(), msg)

		var delivery *DeliveryError
		require.ErrorAs(t, err, &delivery)
		assert.Equal(t, "sendgrid", delivery.Driver)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("transport error", func(t *testing.T) {
		client := &mockSendGridClient{}
		client.On("SendWithContext", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

		err := NewSendGridNotifierWithClient(cfg, client).Send(context.Background(), msg)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout")
	})
}

func TestSMTPNotifier(t *testing.T) {
	mailCfg := &config.MailConfig{FromAddress: "noreply@example.com"}

	t.Run("delivers through mail service", func(t *testing.T) {
		client := &stubMailClient{}
		svc, err := mail.NewServiceWithClient(mailCfg, nil, client)
		require.NoError(t, err)

		err = NewSMTPNotifier(svc).Send(context.Background(), Message{To: "a@example.com", Subject: "s", HTML: "<p>1</p>", Text: "1"})

		require.NoError(t, err)
		assert.Len(t, client.sent, 1)
	})

	t.Run("wraps failures", func(t *testing.T) {
		svc, err := mail.NewServiceWithClient(mailCfg, nil, &stubMailClient{err: errors.New("refused")})
		require.NoError(t, err)

		err = NewSMTPNotifier(svc).Send(context.Background(), Message{To: "a@example.com", Subject: "s", HTML: "x"})

		var delivery *DeliveryError
		require.ErrorAs(t, err, &delivery)
		assert.Equal(t, "smtp", delivery.Driver)
	})
}

func TestProvideNotifier(t *testing.T) {
	mailSvc, err := mail.NewServiceWithClient(&config.MailConfig{FromAddress: "noreply@example.com"}, nil, &stubMailClient{})
	require.NoError(t, err)
	sendgridCfg := config.SendGridConfig{APIKey: "SG.test", FromAddress: "noreply@example.com"}

	tests := []struct {
		name     string
		driver   config.NotifierDriver
		sendgrid config.SendGridConfig
		mail     *mail.Service
		want     string
		wantErr  bool
	}{
		{name: "auto prefers sendgrid", driver: config.NotifierAuto, sendgrid: sendgridCfg, mail: mailSvc, want: "sendgrid"},
		{name: "auto falls back to smtp", driver: config.NotifierAuto, mail: mailSvc, want: "smtp"},
		{name: "auto falls back to log", driver: config.NotifierAuto, want: "log"},
		{name: "explicit log", driver: config.NotifierLog, sendgrid: sendgridCfg, want: "log"},
		{name: "explicit smtp", driver: config.NotifierSMTP, mail: mailSvc, want: "smtp"},
		{name: "smtp without mail service", driver: config.NotifierSMTP, wantErr: true},
		{name: "explicit sendgrid", driver: config.NotifierSendGrid, sendgrid: sendgridCfg, want: "sendgrid"},
		{name: "unknown driver", driver: "pigeon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Notifier: config.NotifierConfig{Driver: tt.driver},
				SendGrid: tt.sendgrid,
			}

			n, err := ProvideNotifier(cfg, tt.mail, logging.NewNop())

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Name())
		})
	}
}
