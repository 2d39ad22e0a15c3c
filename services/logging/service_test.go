package logging

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level zapcore.Level) (*Service, *observer.ObservedLogs) {
	core, recorded := observer.New(level)
	return FromZap(zap.New(core)), recorded
}

func TestNewService(t *testing.T) {
	t.Run("json to stdout", func(t *testing.T) {
		service, err := NewService(Config{Level: Info, Format: "json", OutputPath: "stdout"})

		require.NoError(t, err)
		assert.NotNil(t, service.Logger())
	})

	t.Run("console format", func(t *testing.T) {
		service, err := NewService(Config{Level: Debug, Format: "console"})

		require.NoError(t, err)
		assert.NotNil(t, service.Logger())
	})

	t.Run("file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "otp.log")

		service, err := NewService(Config{Level: Warn, Format: "json", OutputPath: logFile})
		require.NoError(t, err)

		service.Warn("code delivery failed")
		service.Sync()

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "code delivery failed")
	})
}

func TestService_Levels(t *testing.T) {
	service, recorded := observed(zapcore.DebugLevel)

	service.Debug("debug message")
	service.Info("info message", zap.String("email", "a@example.com"))
	service.Warnf("warn %d", 3)
	service.Error("error message")

	logs := recorded.TakeAll()
	require.Len(t, logs, 4)
	assert.Equal(t, zapcore.DebugLevel, logs[0].Level)
	assert.Equal(t, "a@example.com", logs[1].ContextMap()["email"])
	assert.Equal(t, "warn 3", logs[2].Message)
	assert.Equal(t, zapcore.ErrorLevel, logs[3].Level)
}

func TestService_With(t *testing.T) {
	service, recorded := observed(zapcore.InfoLevel)

	child := service.With(zap.String("component", "otp")).Named("issuer")
	child.Info("issued")

	logs := recorded.TakeAll()
	require.Len(t, logs, 1)
	assert.Equal(t, "issuer", logs[0].LoggerName)
	assert.Equal(t, "otp", logs[0].ContextMap()["component"])
}

func TestService_NilSafety(t *testing.T) {
	var service *Service

	assert.NotPanics(t, func() {
		service.Debug("test")
		service.Info("test")
		service.Warn("test")
		service.Error("test")
		service.Infof("test %s", "value")
		service.Warnf("test %s", "value")
		service.With(zap.String("k", "v")).Info("test")
		service.Named("x").Info("test")
		assert.NoError(t, service.Sync())
	})
	assert.Nil(t, service.Logger())
	assert.Nil(t, FromZap(nil))
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zapcore.Level
	}{
		{Debug, zapcore.DebugLevel},
		{Info, zapcore.InfoLevel},
		{Warn, zapcore.WarnLevel},
		{Error, zapcore.ErrorLevel},
		{LogLevel("unknown"), zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		wantLogs  int
		wantLevel zapcore.Level
	}{
		{name: "success logged at info", path: "/api/auth/email-otp/verify-otp", status: http.StatusOK, wantLogs: 1, wantLevel: zapcore.InfoLevel},
		{name: "client error logged at warn", path: "/api/check-user", status: http.StatusBadRequest, wantLogs: 1, wantLevel: zapcore.WarnLevel},
		{name: "server error logged at error", path: "/api/check-user", status: http.StatusInternalServerError, wantLogs: 1, wantLevel: zapcore.ErrorLevel},
		{name: "skipped path", path: "/api/health", status: http.StatusOK, wantLogs: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, recorded := observed(zapcore.DebugLevel)

			e := echo.New()
			e.Use(middleware.RequestID())
			e.Use(RequestLogger(service, "/api/health"))
			e.Any(tt.path, func(c echo.Context) error {
				return c.NoContent(tt.status)
			})

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, nil))

			logs := recorded.TakeAll()
			require.Len(t, logs, tt.wantLogs)
			if tt.wantLogs == 0 {
				return
			}
			assert.Equal(t, tt.wantLevel, logs[0].Level)
			assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), logs[0].ContextMap()["request_id"])
			assert.NotEmpty(t, logs[0].ContextMap()["request_id"])
		})
	}
}

func TestFromContext(t *testing.T) {
	service, recorded := observed(zapcore.InfoLevel)

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	FromContext(c, service).Info("no id")
	c.Response().Header().Set(echo.HeaderXRequestID, "req-1")
	FromContext(c, service).Info("with id")

	logs := recorded.TakeAll()
	require.Len(t, logs, 2)
	assert.NotContains(t, logs[0].ContextMap(), "request_id")
	assert.Equal(t, "req-1", logs[1].ContextMap()["request_id"])
}
