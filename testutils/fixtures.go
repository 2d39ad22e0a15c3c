package testutils

import (
	"time"

	"github.com/tech-arch1tect/authstarter/config"
	"golang.org/x/crypto/bcrypt"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "Test App",
			URL:  "http://localhost:8080",
			Env:  "test",
		},
		Log: config.LogConfig{
			Level:  "debug",
			Format: "json",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		OTP: config.OTPConfig{
			TTL:             10 * time.Minute,
			Store:           config.OTPStoreDatabase,
			Hasher:          config.OTPHasherBcrypt,
			BcryptCost:      bcrypt.MinCost,
			CleanupEnabled:  false,
			CleanupSchedule: "@every 5m",
		},
		Redis: config.RedisConfig{
			KeyPrefix: "otp-test",
		},
		Notifier: config.NotifierConfig{
			Driver:  config.NotifierLog,
			Timeout: time.Second,
		},
	}
}

var TestInputs = struct {
	Email          string
	MixedCaseEmail string
	OtherEmail     string
	MalformedEmail string
	WrongCode      string
	BypassCode     string
}{
	Email:          "a@example.com",
	MixedCaseEmail: "  A@Example.COM ",
	OtherEmail:     "b@example.com",
	MalformedEmail: "not-an-email",
	WrongCode:      "000000",
	BypassCode:     "424242",
}
