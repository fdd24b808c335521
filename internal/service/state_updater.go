package service

import (
	"context"
	"time"

	"github.com/Eursukkul/outing-service/internal/clock"
	"github.com/Eursukkul/outing-service/internal/metrics"
	"github.com/Eursukkul/outing-service/internal/models"
	"github.com/Eursukkul/outing-service/internal/repository"
	"go.uber.org/zap"
)

// StateUpdater moves outings along their natural progression as time passes.
type StateUpdater struct {
	repo   repository.OutingRepository
	clock  clock.Clock
	logger *zap.Logger
}

func NewStateUpdater(repo repository.OutingRepository, clk clock.Clock, logger *zap.Logger) *StateUpdater {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateUpdater{repo: repo, clock: clk, logger: logger}
}

// UpdateAllStates recomputes the state of every non-terminal outing against a
// single instant and writes the changed ones in one batch. It returns the
// number of outings written.
func (u *StateUpdater) UpdateAllStates(ctx context.Context) (int, error) {
	started := time.Now()
	now := u.clock.Now()

	outings, err := u.repo.FindNonTerminal(ctx)
	if err != nil {
		metrics.ObserveSweep("failure", time.Since(started))
		return 0, infra("load non-terminal outings", err)
	}

	var changed []*models.Outing
	for i := range outings {
		o := &outings[i]
		next := o.NaturalState(now)
		if next == o.State {
			continue
		}
		u.logger.Debug("outing state changed",
			zap.Uint("outing_id", o.ID),
			zap.String("from", o.State.String()),
			zap.String("to", next.String()),
		)
		o.State = next
		o.UpdatedAt = now
		changed = append(changed, o)
	}

	if len(changed) == 0 {
		metrics.ObserveSweep("success", time.Since(started))
		return 0, nil
	}

	written, err := u.repo.SaveStates(ctx, changed)
	if err != nil {
		metrics.ObserveSweep("failure", time.Since(started))
		return 0, infra("save outing states", err)
	}
	saved := len(written)
	if saved < len(changed) {
		u.logger.Warn("outings modified during sweep were skipped",
			zap.Int("changed", len(changed)),
			zap.Int("saved", saved),
		)
	}
	for _, o := range written {
		metrics.RecordTransition(o.State.String(), "sweep")
	}

	metrics.ObserveSweep("success", time.Since(started))
	u.logger.Info("outing states updated",
		zap.Int("updated", saved),
		zap.Int("scanned", len(outings)),
		zap.Time("now", now),
	)
	return saved, nil
}

// UpdateOutingState recomputes a single outing and saves it immediately when
// its state changed.
func (u *StateUpdater) UpdateOutingState(ctx context.Context, outing *models.Outing) (bool, error) {
	now := u.clock.Now()
	next := outing.NaturalState(now)
	if next == outing.State {
		return false, nil
	}

	previous, previousUpdated := outing.State, outing.UpdatedAt
	outing.State = next
	outing.UpdatedAt = now
	if err := u.repo.Save(ctx, outing); err != nil {
		outing.State, outing.UpdatedAt = previous, previousUpdated
		return false, translateSaveError("save outing state", err)
	}
	metrics.RecordTransition(next.String(), "sweep")
	return true, nil
}
