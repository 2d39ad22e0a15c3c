package config

import (
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig      `envPrefix:"APP_"`
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Log      LogConfig      `envPrefix:"LOG_"`
	Database DatabaseConfig `envPrefix:"DATABASE_"`
	OTP      OTPConfig      `envPrefix:"OTP_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Notifier NotifierConfig `envPrefix:"NOTIFIER_"`
	Mail     MailConfig     `envPrefix:"MAIL_"`
	SendGrid SendGridConfig `envPrefix:"SENDGRID_"`
}

type AppConfig struct {
	Name string `env:"NAME" envDefault:"Auth Starter"`
	URL  string `env:"URL" envDefault:"http://localhost:8080"`
	Env  string `env:"ENV" envDefault:"development"`
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	Host            string        `env:"HOST" envDefault:"localhost"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver       string `env:"DRIVER" envDefault:"sqlite"`
	DSN          string `env:"DSN" envDefault:"app.db"`
	AutoMigrate  bool   `env:"AUTO_MIGRATE" envDefault:"true"`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int    `env:"MAX_IDLE_CONNS" envDefault:"5"`
}

type OTPStore string

const (
	OTPStoreDatabase OTPStore = "database"
	OTPStoreRedis    OTPStore = "redis"
)

type OTPHasher string

const (
	OTPHasherBcrypt   OTPHasher = "bcrypt"
	OTPHasherArgon2id OTPHasher = "argon2id"
)

// OTPConfig controls issuance and verification of email passcodes.
// MaxAttempts of zero disables the mismatch cap.
type OTPConfig struct {
	TTL               time.Duration `env:"TTL" envDefault:"10m"`
	Store             OTPStore      `env:"STORE" envDefault:"database"`
	Hasher            OTPHasher     `env:"HASHER" envDefault:"bcrypt"`
	BcryptCost        int           `env:"BCRYPT_COST" envDefault:"10"`
	Argon2Memory      uint32        `env:"ARGON2_MEMORY" envDefault:"65536"`
	Argon2Iterations  uint32        `env:"ARGON2_ITERATIONS" envDefault:"1"`
	Argon2Parallelism uint8         `env:"ARGON2_PARALLELISM" envDefault:"2"`
	MaxAttempts       int           `env:"MAX_ATTEMPTS" envDefault:"0"`
	CleanupEnabled    bool          `env:"CLEANUP_ENABLED" envDefault:"true"`
	CleanupSchedule   string        `env:"CLEANUP_SCHEDULE" envDefault:"@every 5m"`
	BypassEnabled     bool          `env:"BYPASS_ENABLED" envDefault:"false"`
	BypassCode        string        `env:"BYPASS_CODE"`
	ExposeCode        bool          `env:"EXPOSE_CODE" envDefault:"false"`
}

type RedisConfig struct {
	Addr      string `env:"ADDR"`
	Password  string `env:"PASSWORD"`
	DB        int    `env:"DB" envDefault:"0"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"otp"`
}

type NotifierDriver string

const (
	NotifierAuto     NotifierDriver = "auto"
	NotifierSMTP     NotifierDriver = "smtp"
	NotifierSendGrid NotifierDriver = "sendgrid"
	NotifierLog      NotifierDriver = "log"
)

type NotifierConfig struct {
	Driver  NotifierDriver `env:"DRIVER" envDefault:"auto"`
	Timeout time.Duration  `env:"TIMEOUT" envDefault:"10s"`
}

type MailConfig struct {
	Host         string `env:"HOST"`
	Port         int    `env:"PORT" envDefault:"587"`
	Username     string `env:"USERNAME"`
	Password     string `env:"PASSWORD"`
	Encryption   string `env:"ENCRYPTION" envDefault:"starttls"`
	FromAddress  string `env:"FROM_ADDRESS"`
	FromName     string `env:"FROM_NAME"`
	TemplatesDir string `env:"TEMPLATES_DIR"`
}

// Configured reports whether enough SMTP settings are present to deliver mail.
func (m MailConfig) Configured() bool {
	return m.Host != "" && m.FromAddress != ""
}

type SendGridConfig struct {
	APIKey      string `env:"API_KEY"`
	FromAddress string `env:"FROM_ADDRESS"`
	FromName    string `env:"FROM_NAME"`
	SandboxMode bool   `env:"SANDBOX_MODE" envDefault:"false"`
}

func (s SendGridConfig) Configured() bool {
	return s.APIKey != "" && s.FromAddress != ""
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	if c, ok := cfg.(*Config); ok {
		return c.Validate()
	}
	return nil
}

func (c *Config) Validate() error {
	if err := validateDatabaseConfig(&c.Database); err != nil {
		return err
	}
	if err := validateOTPConfig(&c.OTP, c.IsProduction()); err != nil {
		return err
	}
	if c.OTP.Store == OTPStoreRedis && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required when OTP_STORE is redis")
	}
	return validateNotifierConfig(c)
}

func validateDatabaseConfig(cfg *DatabaseConfig) error {
	switch cfg.Driver {
	case "sqlite", "postgres", "postgresql", "mysql":
	default:
		return fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", cfg.Driver)
	}
	if cfg.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	return nil
}

func validateOTPConfig(cfg *OTPConfig, production bool) error {
	if cfg.TTL <= 0 {
		return fmt.Errorf("OTP TTL must be positive")
	}

	switch cfg.Store {
	case OTPStoreDatabase, OTPStoreRedis:
	default:
		return fmt.Errorf("unsupported OTP store: %s (supported: database, redis)", cfg.Store)
	}

	switch cfg.Hasher {
	case OTPHasherBcrypt, OTPHasherArgon2id:
	default:
		return fmt.Errorf("unsupported OTP hasher: %s (supported: bcrypt, argon2id)", cfg.Hasher)
	}

	if cfg.MaxAttempts < 0 {
		return fmt.Errorf("OTP max attempts cannot be negative")
	}

	if cfg.BypassEnabled {
		if production {
			return fmt.Errorf("OTP bypass code cannot be enabled in production")
		}
		if !sixDigits.MatchString(cfg.BypassCode) {
			return fmt.Errorf("OTP bypass code must be exactly 6 digits")
		}
	}

	if cfg.ExposeCode && production {
		return fmt.Errorf("OTP code exposure cannot be enabled in production")
	}

	return nil
}

func validateNotifierConfig(c *Config) error {
	switch c.Notifier.Driver {
	case NotifierAuto, NotifierLog:
	case NotifierSMTP:
		if !c.Mail.Configured() {
			return fmt.Errorf("notifier driver smtp requires MAIL_HOST and MAIL_FROM_ADDRESS")
		}
	case NotifierSendGrid:
		if !c.SendGrid.Configured() {
			return fmt.Errorf("notifier driver sendgrid requires SENDGRID_API_KEY and SENDGRID_FROM_ADDRESS")
		}
	default:
		return fmt.Errorf("unsupported notifier driver: %s (supported: auto, smtp, sendgrid, log)", c.Notifier.Driver)
	}
	return nil
}
