package service

import (
	"context"

	"github.com/Eursukkul/outing-service/internal/models"
)

// Notifier delivers outing messages to whoever acts on them (mailer, inbox).
// Delivery semantics belong to the implementation.
type Notifier interface {
	Notify(ctx context.Context, msg models.OutingMessage) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, models.OutingMessage) error { return nil }
