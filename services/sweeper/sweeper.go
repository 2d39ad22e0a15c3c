// Package sweeper periodically removes expired verification codes.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tech-arch1tect/authstarter/services/logging"
	"go.uber.org/zap"
)

type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

type Sweeper struct {
	cron    *cron.Cron
	entry   cron.EntryID
	cleaner Cleaner
	logger  *logging.Service
	timeout time.Duration
}

// New schedules cleaner on a cron spec such as "@every 5m" or "0 3 * * *".
// Overlapping runs are skipped.
func New(cleaner Cleaner, schedule string, logger *logging.Service) (*Sweeper, error) {
	s := &Sweeper{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		cleaner: cleaner,
		logger:  logger,
		timeout: time.Minute,
	}

	id, err := s.cron.AddFunc(schedule, func() {
		_, _ = s.RunOnce(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule expired code cleanup %q: %w", schedule, err)
	}
	s.entry = id
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("expired code sweeper started", zap.Time("next_run", s.Next()))
}

// Stop waits for a running sweep to finish or ctx to end.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	removed, err := s.cleaner.CleanupExpired(ctx)
	if err != nil {
		s.logger.Error("scheduled expired code cleanup failed", zap.Error(err))
		return 0, err
	}
	s.logger.Debug("scheduled expired code cleanup finished", zap.Int64("removed", removed))
	return removed, nil
}
