package notifier

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	htmlTemplate "html/template"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	textTemplate "text/template"
	"time"
)

//go:embed templates/*
var embeddedTemplates embed.FS

const (
	codeTemplateHTML = "otp_code.html"
	codeTemplateText = "otp_code.txt"
)

type purposeCopy struct {
	subject string
	action  string
}

var purposes = map[string]purposeCopy{
	"sign-in":            {subject: "Your Login Verification Code", action: "sign in"},
	"sign-up":            {subject: "Your Account Verification Code", action: "verify your account"},
	"email-verification": {subject: "Verify Your Email Address", action: "verify your email address"},
}

type codeData struct {
	AppName          string
	Heading          string
	Action           string
	Code             string
	ExpiresInMinutes int
	Year             int
}

// Composer renders the verification code email for each purpose.
type Composer struct {
	appName string
	ttl     time.Duration
	html    *htmlTemplate.Template
	text    *textTemplate.Template
	now     func() time.Time
}

// NewComposer loads the built-in templates. Files named otp_code.html or
// otp_code.txt in templatesDir take precedence.
func NewComposer(appName string, ttl time.Duration, templatesDir string) (*Composer, error) {
	var source fs.FS = mustSub(embeddedTemplates, "templates")

	htmlSrc, err := readTemplate(source, templatesDir, codeTemplateHTML)
	if err != nil {
		return nil, err
	}
	textSrc, err := readTemplate(source, templatesDir, codeTemplateText)
	if err != nil {
		return nil, err
	}

	html, err := htmlTemplate.New(codeTemplateHTML).Parse(htmlSrc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML template: %w", err)
	}
	text, err := textTemplate.New(codeTemplateText).Parse(textSrc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}

	return &Composer{
		appName: appName,
		ttl:     ttl,
		html:    html,
		text:    text,
		now:     time.Now,
	}, nil
}

func mustSub(fsys embed.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

func readTemplate(embedded fs.FS, dir, name string) (string, error) {
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to read template %s: %w", name, err)
		}
	}

	data, err := fs.ReadFile(embedded, name)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return string(data), nil
}

// Subject returns the subject line for a purpose, falling back to sign-up copy.
func Subject(purpose string) string {
	return copyFor(purpose).subject
}

func copyFor(purpose string) purposeCopy {
	if c, ok := purposes[purpose]; ok {
		return c
	}
	return purposes["sign-up"]
}

func (c *Composer) Compose(to, purpose, code string) (Message, error) {
	pc := copyFor(purpose)
	data := codeData{
		AppName:          c.appName,
		Heading:          "Verification Code",
		Action:           pc.action,
		Code:             code,
		ExpiresInMinutes: int(math.Ceil(c.ttl.Minutes())),
		Year:             c.now().Year(),
	}

	var html, text bytes.Buffer
	if err := c.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("failed to execute HTML template: %w", err)
	}
	if err := c.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("failed to execute text template: %w", err)
	}

	return Message{
		To:      to,
		Subject: pc.subject,
		HTML:    html.String(),
		Text:    strings.TrimSpace(text.String()),
	}, nil
}
