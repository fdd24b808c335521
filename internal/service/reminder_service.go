package service

import (
	"context"
	"time"

	"github.com/Eursukkul/outing-service/internal/lifecycle"
	"github.com/Eursukkul/outing-service/internal/metrics"
	"github.com/Eursukkul/outing-service/internal/models"
	"github.com/Eursukkul/outing-service/internal/repository"
	"go.uber.org/zap"
)

// remindableStates are the states whose participants still expect the outing to happen.
var remindableStates = []lifecycle.State{lifecycle.StateOpen, lifecycle.StateClosed}

// ReminderService emits a reminder message for outings about to start.
type ReminderService struct {
	repo     repository.OutingRepository
	notifier Notifier
	logger   *zap.Logger
}

func NewReminderService(repo repository.OutingRepository, notifier Notifier, logger *zap.Logger) *ReminderService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{repo: repo, notifier: notifier, logger: logger}
}

// DueBetween returns the outings starting within [from, to) that still take place.
func (r *ReminderService) DueBetween(ctx context.Context, from, to time.Time) ([]models.Outing, error) {
	if !from.Before(to) {
		return nil, nil
	}
	outings, err := r.repo.FindStartingBetween(ctx, from, to, remindableStates)
	if err != nil {
		return nil, infra("find outings starting soon", err)
	}
	return outings, nil
}

// DispatchDue emits one reminder per outing starting within [from, to) and
// returns how many were sent. A failed send is logged and does not stop the batch.
func (r *ReminderService) DispatchDue(ctx context.Context, from, to time.Time) (int, error) {
	outings, err := r.DueBetween(ctx, from, to)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, o := range outings {
		if len(o.Participants) == 0 {
			continue
		}
		msg := newMessage(models.ActionReminder, o.ID, 0, "", from)
		if err := r.notifier.Notify(ctx, *msg); err != nil {
			r.logger.Warn("reminder not sent", zap.Uint("outing_id", o.ID), zap.Error(err))
			continue
		}
		sent++
	}

	metrics.AddReminders(sent)
	if sent > 0 {
		r.logger.Info("reminders dispatched", zap.Int("sent", sent), zap.Time("from", from), zap.Time("to", to))
	}
	return sent, nil
}
