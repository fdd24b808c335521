package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/outing-service/internal/clock"
	"github.com/Eursukkul/outing-service/internal/metrics"
	"github.com/Eursukkul/outing-service/internal/models"
	"github.com/Eursukkul/outing-service/internal/repository"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type outingFinder interface {
	FindByID(ctx context.Context, id uint) (*models.Outing, error)
}

type notificationStore interface {
	CreateMany(ctx context.Context, notifications []models.Notification) error
}

// NotificationConsumer turns outing messages into per-user notification rows.
type NotificationConsumer struct {
	outings       outingFinder
	notifications notificationStore
	clock         clock.Clock
	logger        *zap.Logger
}

func NewNotificationConsumer(outings outingFinder, notifications notificationStore, clk clock.Clock, logger *zap.Logger) *NotificationConsumer {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationConsumer{outings: outings, notifications: notifications, clock: clk, logger: logger}
}

// Run handles deliveries until msgs is closed or ctx is done.
func (nc *NotificationConsumer) Run(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				nc.logger.Info("delivery channel closed, stopping consumer")
				return nil
			}
			nc.handleMessage(ctx, msg)
		}
	}
}

func (nc *NotificationConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var m models.OutingMessage
	if err := json.Unmarshal(msg.Body, &m); err != nil || m.OutingID == 0 {
		nc.logger.Warn("dropping malformed outing message", zap.String("routing_key", msg.RoutingKey), zap.Error(err))
		msg.Nack(false, false)
		return
	}
	if m.MessageID == "" {
		m.MessageID = msg.MessageId
	}

	outing, err := nc.outings.FindByID(ctx, m.OutingID)
	if errors.Is(err, repository.ErrNotFound) {
		// Deleted since the message was sent; nobody left to tell.
		nc.logger.Info("outing gone, message dropped", zap.Uint("outing_id", m.OutingID), zap.String("action", string(m.Action)))
		msg.Ack(false)
		return
	}
	if err != nil {
		nc.logger.Error("load outing for notification", zap.Uint("outing_id", m.OutingID), zap.Error(err))
		msg.Nack(false, true) // requeue
		return
	}

	notifications := Build(m, outing, nc.clock.Now())
	if err := nc.notifications.CreateMany(ctx, notifications); err != nil {
		nc.logger.Error("store notifications", zap.Uint("outing_id", m.OutingID), zap.Error(err))
		msg.Nack(false, true)
		return
	}

	metrics.AddNotifications(string(m.Action), len(notifications))
	nc.logger.Debug("notifications stored",
		zap.Uint("outing_id", m.OutingID),
		zap.String("action", string(m.Action)),
		zap.Int("recipients", len(notifications)),
	)
	msg.Ack(false)
}

// Build returns one notification per recipient of m. Recipients depend on the
// action; the actor of a registration change is always included.
func Build(m models.OutingMessage, outing *models.Outing, now time.Time) []models.Notification {
	var recipients []uint
	switch m.Action {
	case models.ActionRegistered, models.ActionUnregistered:
		recipients = []uint{outing.OrganizerID, m.UserID}
	case models.ActionPublished:
		recipients = []uint{outing.OrganizerID}
	case models.ActionCancelled:
		recipients = append([]uint{outing.OrganizerID}, outing.ParticipantIDs()...)
	case models.ActionReminder:
		recipients = outing.ParticipantIDs()
	}

	body := describe(m, outing)
	seen := make(map[uint]bool, len(recipients))
	notifications := make([]models.Notification, 0, len(recipients))
	for _, uid := range recipients {
		if uid == 0 || seen[uid] {
			continue
		}
		seen[uid] = true
		notifications = append(notifications, models.Notification{
			ID:        uuid.NewString(),
			MessageID: m.MessageID,
			UserID:    uid,
			OutingID:  outing.ID,
			Action:    m.Action,
			Body:      body,
			CreatedAt: now.UTC(),
		})
	}
	return notifications
}

func describe(m models.OutingMessage, outing *models.Outing) string {
	switch m.Action {
	case models.ActionRegistered:
		return fmt.Sprintf("Nouvelle inscription à « %s ».", outing.Name)
	case models.ActionUnregistered:
		return fmt.Sprintf("Désinscription de « %s ».", outing.Name)
	case models.ActionPublished:
		return fmt.Sprintf("La sortie « %s » est ouverte aux inscriptions.", outing.Name)
	case models.ActionCancelled:
		reason := m.Reason
		if reason == "" {
			reason = "non précisé"
		}
		return fmt.Sprintf("La sortie « %s » est annulée. Motif : %s", outing.Name, reason)
	case models.ActionReminder:
		return fmt.Sprintf("Rappel : « %s » commence le %s.", outing.Name, outing.StartAt.Format("02/01/2006 à 15:04"))
	}
	return outing.Name
}
