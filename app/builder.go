package app

import (
	"errors"
	"fmt"

	"github.com/tech-arch1tect/authstarter/config"
	"github.com/tech-arch1tect/authstarter/database"
	"github.com/tech-arch1tect/authstarter/handlers"
	"github.com/tech-arch1tect/authstarter/server"
	"github.com/tech-arch1tect/authstarter/services/logging"
	"github.com/tech-arch1tect/authstarter/services/mail"
	"github.com/tech-arch1tect/authstarter/services/notifier"
	"github.com/tech-arch1tect/authstarter/services/otp"
	"github.com/tech-arch1tect/authstarter/services/sweeper"
	"github.com/tech-arch1tect/authstarter/services/users"
	"go.uber.org/fx"
)

type AppBuilder struct {
	config    *config.Config
	models    []any
	fxOptions []fx.Option
	sweeper   bool
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		models:    []any{&otp.Record{}, &users.User{}},
		fxOptions: make([]fx.Option, 0),
		sweeper:   true,
		errors:    make([]error, 0),
	}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

// WithModels registers extra gorm models for auto-migration alongside the
// code and user tables.
func (b *AppBuilder) WithModels(models ...any) *AppBuilder {
	b.models = append(b.models, models...)
	return b
}

// WithoutSweeper leaves expired codes to be removed on verification only.
func (b *AppBuilder) WithoutSweeper() *AppBuilder {
	b.sweeper = false
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, errors.New(msg))
}

func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %w", errors.Join(b.errors...))
	}
	if b.config == nil {
		return errors.New("config is required")
	}
	return b.config.Validate()
}

func (b *AppBuilder) Build() (*App, error) {
	if b.config == nil && len(b.errors) == 0 {
		b.WithAutoConfig()
	}
	if err := b.validate(); err != nil {
		return nil, err
	}

	app := &App{config: b.config}
	app.fx = fx.New(append(b.buildFxOptions(), fx.Populate(&app.logger, &app.server))...)
	if err := app.fx.Err(); err != nil {
		return nil, fmt.Errorf("failed to assemble application: %w", err)
	}
	return app, nil
}

func (b *AppBuilder) buildFxOptions() []fx.Option {
	options := []fx.Option{
		fx.NopLogger,
		config.NewProvider(b.config),
		fx.Supply(database.WithModels(b.models...)),
		logging.Module,
		database.Module,
		mail.Module,
		notifier.Module,
		otp.Module,
		users.Module,
		server.Module,
		handlers.Module,
	}

	if b.sweeper {
		options = append(options, sweeper.Module)
	}

	return append(options, b.fxOptions...)
}
