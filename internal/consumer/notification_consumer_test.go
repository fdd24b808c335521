package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Eursukkul/outing-service/internal/clock"
	"github.com/Eursukkul/outing-service/internal/lifecycle"
	"github.com/Eursukkul/outing-service/internal/models"
	"github.com/Eursukkul/outing-service/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var now = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

// --- Mocks ---

type ackRecorder struct {
	acks     int
	nacks    int
	requeued bool
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	a.acks++
	return nil
}

func (a *ackRecorder) Nack(tag uint64, multiple, requeue bool) error {
	a.nacks++
	a.requeued = requeue
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type mockOutings struct {
	findByIDFn func(ctx context.Context, id uint) (*models.Outing, error)
}

func (m *mockOutings) FindByID(ctx context.Context, id uint) (*models.Outing, error) {
	return m.findByIDFn(ctx, id)
}

type mockNotifications struct {
	createManyFn func(ctx context.Context, n []models.Notification) error
	stored       []models.Notification
}

func (m *mockNotifications) CreateMany(ctx context.Context, n []models.Notification) error {
	if m.createManyFn != nil {
		return m.createManyFn(ctx, n)
	}
	m.stored = append(m.stored, n...)
	return nil
}

// --- Helpers ---

func sampleOuting() *models.Outing {
	return &models.Outing{
		ID:          3,
		Name:        "Randonnée",
		StartAt:     now.Add(48 * time.Hour),
		State:       lifecycle.StateOpen,
		OrganizerID: 1,
		Participants: []models.Participation{
			{OutingID: 3, UserID: 42},
			{OutingID: 3, UserID: 43},
		},
	}
}

func delivery(t *testing.T, m models.OutingMessage, ack *ackRecorder) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(m)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body, RoutingKey: m.RoutingKey()}
}

func newConsumer(outing *models.Outing, store *mockNotifications) *NotificationConsumer {
	outings := &mockOutings{findByIDFn: func(ctx context.Context, id uint) (*models.Outing, error) {
		if outing == nil || id != outing.ID {
			return nil, repository.ErrNotFound
		}
		return outing, nil
	}}
	return NewNotificationConsumer(outings, store, clock.NewFixedClock(now), nil)
}

// --- Tests ---

func TestHandleMessage_CancelledNotifiesEveryone(t *testing.T) {
	store := &mockNotifications{}
	nc := newConsumer(sampleOuting(), store)
	ack := &ackRecorder{}

	nc.handleMessage(context.Background(), delivery(t, models.OutingMessage{
		MessageID: "m-1", Action: models.ActionCancelled, OutingID: 3, UserID: 1, Reason: "rain",
	}, ack))

	assert.Equal(t, 1, ack.acks)
	require.Len(t, store.stored, 3)
	var users []uint
	for _, n := range store.stored {
		users = append(users, n.UserID)
		assert.Equal(t, "m-1", n.MessageID)
		assert.Contains(t, n.Body, "Motif : rain")
		assert.Equal(t, now, n.CreatedAt)
	}
	assert.Equal(t, []uint{1, 42, 43}, users)
}

func TestBuild_Recipients(t *testing.T) {
	tests := []struct {
		action models.OutingAction
		userID uint
		want   []uint
	}{
		{models.ActionRegistered, 42, []uint{1, 42}},
		{models.ActionUnregistered, 44, []uint{1, 44}},
		{models.ActionPublished, 1, []uint{1}},
		{models.ActionReminder, 0, []uint{42, 43}},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			got := Build(models.OutingMessage{MessageID: "m", Action: tt.action, OutingID: 3, UserID: tt.userID}, sampleOuting(), now)

			var users []uint
			for _, n := range got {
				users = append(users, n.UserID)
				assert.NotEmpty(t, n.ID)
				assert.Equal(t, tt.action, n.Action)
			}
			assert.Equal(t, tt.want, users)
		})
	}
}

func TestHandleMessage_MessageIDFromDelivery(t *testing.T) {
	store := &mockNotifications{}
	nc := newConsumer(sampleOuting(), store)
	ack := &ackRecorder{}

	d := delivery(t, models.OutingMessage{Action: models.ActionPublished, OutingID: 3}, ack)
	d.MessageId = "from-header"
	nc.handleMessage(context.Background(), d)

	require.Len(t, store.stored, 1)
	assert.Equal(t, "from-header", store.stored[0].MessageID)
}

func TestHandleMessage_Malformed(t *testing.T) {
	store := &mockNotifications{}
	nc := newConsumer(sampleOuting(), store)
	ack := &ackRecorder{}

	nc.handleMessage(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{not json")})

	assert.Equal(t, 1, ack.nacks)
	assert.False(t, ack.requeued)
	assert.Empty(t, store.stored)
}

func TestHandleMessage_OutingDeleted(t *testing.T) {
	store := &mockNotifications{}
	nc := newConsumer(nil, store)
	ack := &ackRecorder{}

	nc.handleMessage(context.Background(), delivery(t, models.OutingMessage{
		MessageID: "m-2", Action: models.ActionRegistered, OutingID: 3, UserID: 42,
	}, ack))

	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, store.stored)
}

func TestHandleMessage_StoreErrorRequeues(t *testing.T) {
	store := &mockNotifications{createManyFn: func(ctx context.Context, n []models.Notification) error {
		return errors.New("db connection failed")
	}}
	nc := newConsumer(sampleOuting(), store)
	ack := &ackRecorder{}

	nc.handleMessage(context.Background(), delivery(t, models.OutingMessage{
		MessageID: "m-3", Action: models.ActionRegistered, OutingID: 3, UserID: 42,
	}, ack))

	assert.Equal(t, 0, ack.acks)
	assert.Equal(t, 1, ack.nacks)
	assert.True(t, ack.requeued)
}

func TestRun_StopsOnClosedChannelAndContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &mockNotifications{}
	nc := newConsumer(sampleOuting(), store)

	msgs := make(chan amqp.Delivery, 1)
	ack := &ackRecorder{}
	msgs <- delivery(t, models.OutingMessage{MessageID: "m-4", Action: models.ActionPublished, OutingID: 3}, ack)
	close(msgs)

	require.NoError(t, nc.Run(context.Background(), msgs))
	assert.Equal(t, 1, ack.acks)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- nc.Run(ctx, make(chan amqp.Delivery)) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop on context cancellation")
	}
}
