package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authstarter/config"
	"github.com/tech-arch1tect/authstarter/services/otp"
	"github.com/tech-arch1tect/authstarter/testutils"
	"go.uber.org/fx"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testutils.GetTestConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Database.DSN = filepath.Join(t.TempDir(), "app.db")
	cfg.Log.Level = "error"
	return cfg
}

func TestAppBuilder_Errors(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewApp().WithConfig(nil).Build()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "config cannot be nil")
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.OTP.TTL = 0

		_, err := NewApp().WithConfig(cfg).Build()

		assert.Error(t, err)
	})

	t.Run("redis store without address", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.OTP.Store = config.OTPStoreRedis
		cfg.Redis.Addr = ""

		_, err := NewApp().WithConfig(cfg).Build()

		assert.Error(t, err)
	})
}

func TestApp_Lifecycle(t *testing.T) {
	cfg := testConfig(t)
	cfg.OTP.CleanupEnabled = true
	cfg.OTP.CleanupSchedule = "@every 1h"

	var service *otp.Service
	a, err := NewApp().
		WithConfig(cfg).
		WithFxOptions(fx.Populate(&service)).
		Build()
	require.NoError(t, err)
	require.NotNil(t, a.Server())
	require.NotNil(t, a.Logger())
	assert.Equal(t, cfg, a.Config())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Start(ctx))
	t.Cleanup(func() { assert.NoError(t, a.Stop(context.Background())) })

	t.Run("routes are registered", func(t *testing.T) {
		rec := httptest.NewRecorder()
		a.Server().Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("codes issued over http verify through the service", func(t *testing.T) {
		service.SetGenerator(func() (string, error) { return "246810", nil })

		req := httptest.NewRequest(http.MethodPost, "/api/auth/email-otp/send-verification-otp",
			strings.NewReader(`{"email":"a@example.com"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		a.Server().Echo().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		result, err := service.Verify(context.Background(), "a@example.com", otp.PurposeSignUp, "246810")
		require.NoError(t, err)
		assert.True(t, result.Success)
	})
}

func TestNew(t *testing.T) {
	a, err := New(testConfig(t))

	require.NoError(t, err)
	assert.NotNil(t, a.Server())
}
