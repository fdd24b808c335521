package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/Eursukkul/outing-service/internal/clock"
	"github.com/Eursukkul/outing-service/internal/metrics"
	"github.com/Eursukkul/outing-service/pkg/redislock"
	"go.uber.org/zap"
)

// LockKey is the Redis key guarding a sweep across replicas.
const LockKey = "outing-service:sweep"

type Sweeper interface {
	UpdateAllStates(ctx context.Context) (int, error)
}

type ReminderDispatcher interface {
	DispatchDue(ctx context.Context, from, to time.Time) (int, error)
}

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// Scheduler periodically sweeps outing states and dispatches reminders.
type Scheduler struct {
	sweeper   Sweeper
	reminders ReminderDispatcher
	locker    Locker
	clock     clock.Clock
	logger    *zap.Logger

	Interval     time.Duration
	ReminderLead time.Duration
}

// New builds a scheduler. reminders and locker may be nil: without a locker
// every replica sweeps, which is safe but redundant.
func New(sweeper Sweeper, reminders ReminderDispatcher, locker Locker, clk clock.Clock, logger *zap.Logger) *Scheduler {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		sweeper:      sweeper,
		reminders:    reminders,
		locker:       locker,
		clock:        clk,
		logger:       logger,
		Interval:     time.Minute,
		ReminderLead: 24 * time.Hour,
	}
}

// Run ticks every Interval until ctx is cancelled. The first tick runs at once.
// Tick failures are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", zap.Duration("interval", s.Interval))

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("scheduled run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce performs one sweep followed by one reminder window, under the lock.
// Errors from both steps are joined.
// It returns nil without doing anything when another replica holds the lock.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, LockKey, s.Interval)
		if errors.Is(err, redislock.ErrNotAcquired) {
			metrics.ObserveSweep("skipped", 0)
			s.logger.Debug("sweep skipped, lock held by another replica")
			return nil
		}
		if err != nil {
			return err
		}
		defer release()
	}

	_, sweepErr := s.sweeper.UpdateAllStates(ctx)

	if s.reminders == nil {
		return sweepErr
	}
	// Consecutive ticks cover adjacent windows of one interval each, so the
	// window is dispatched even when the sweep failed.
	from := s.clock.Now().Add(s.ReminderLead)
	_, remindErr := s.reminders.DispatchDue(ctx, from, from.Add(s.Interval))
	return errors.Join(sweepErr, remindErr)
}
