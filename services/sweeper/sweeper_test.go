package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authstarter/services/logging"
	"github.com/tech-arch1tect/authstarter/services/otp"
	"github.com/tech-arch1tect/authstarter/testutils"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockCleaner struct {
	mock.Mock
}

func (m *mockCleaner) CleanupExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type countingCleaner struct {
	calls atomic.Int32
}

func (c *countingCleaner) CleanupExpired(ctx context.Context) (int64, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestNew_InvalidSchedule(t *testing.T) {
	s, err := New(&mockCleaner{}, "every now and then", nil)

	assert.Nil(t, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to schedule")
}

func TestSweeper_RunOnce(t *testing.T) {
	t.Run("reports removed count", func(t *testing.T) {
		cleaner := &mockCleaner{}
		cleaner.On("CleanupExpired", mock.Anything).Return(int64(4), nil).Once()

		s, err := New(cleaner, "@every 1h", nil)
		require.NoError(t, err)

		removed, err := s.RunOnce(context.Background())

		require.NoError(t, err)
		assert.Equal(t, int64(4), removed)
		cleaner.AssertExpectations(t)
	})

	t.Run("logs failures", func(t *testing.T) {
		core, recorded := observer.New(zapcore.ErrorLevel)
		cleaner := &mockCleaner{}
		cleaner.On("CleanupExpired", mock.Anything).Return(int64(0), errors.New("db down"))

		s, err := New(cleaner, "@every 1h", logging.FromZap(zap.New(core)))
		require.NoError(t, err)

		_, err = s.RunOnce(context.Background())

		require.Error(t, err)
		assert.Equal(t, 1, recorded.FilterMessage("scheduled expired code cleanup failed").Len())
	})
}

func TestSweeper_Schedule(t *testing.T) {
	cleaner := &countingCleaner{}
	s, err := New(cleaner, "@every 1s", nil)
	require.NoError(t, err)

	s.Start()
	assert.False(t, s.Next().IsZero())

	assert.Eventually(t, func() bool { return cleaner.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestRegisterSweeper(t *testing.T) {
	cfg := testutils.GetTestConfig()
	db := testutils.SetupTestDB(t, &otp.Record{})
	svc := otp.NewService(cfg, otp.NewGormStore(db), otp.NewBcryptHasher(cfg.OTP.BcryptCost), nil)

	t.Run("disabled", func(t *testing.T) {
		cfg.OTP.CleanupEnabled = false
		lc := fxtest.NewLifecycle(t)

		require.NoError(t, RegisterSweeper(lc, cfg, svc, nil))
		lc.RequireStart().RequireStop()
	})

	t.Run("enabled", func(t *testing.T) {
		cfg.OTP.CleanupEnabled = true
		cfg.OTP.CleanupSchedule = "@every 1m"
		lc := fxtest.NewLifecycle(t)

		require.NoError(t, RegisterSweeper(lc, cfg, svc, nil))
		lc.RequireStart().RequireStop()
	})

	t.Run("bad schedule", func(t *testing.T) {
		cfg.OTP.CleanupEnabled = true
		cfg.OTP.CleanupSchedule = "nope"

		assert.Error(t, RegisterSweeper(fxtest.NewLifecycle(t), cfg, svc, nil))
	})

}
