package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/Eursukkul/outing-service/internal/dto"
	"github.com/Eursukkul/outing-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNotificationRepo struct {
	findFn func(ctx context.Context, userID uint, limit int) ([]models.Notification, error)
}

func (m *mockNotificationRepo) FindByUserID(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	return m.findFn(ctx, userID, limit)
}

func TestListNotifications_Handler(t *testing.T) {
	var gotUser uint
	var gotLimit int
	repo := &mockNotificationRepo{findFn: func(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
		gotUser, gotLimit = userID, limit
		return []models.Notification{{ID: "n-1", OutingID: 1, UserID: userID, Action: models.ActionReminder, Body: "Rappel"}}, nil
	}}

	c, rec := newContext(http.MethodGet, "/api/v1/notifications?limit=500", "", member)
	require.NoError(t, NewNotificationHandler(repo).ListNotifications(c))

	assert.Equal(t, uint(42), gotUser)
	assert.Equal(t, maxNotificationLimit, gotLimit)

	var resp []dto.NotificationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, models.ActionReminder, resp[0].Action)
}

func TestListNotifications_Handler_DefaultLimit(t *testing.T) {
	var gotLimit int
	repo := &mockNotificationRepo{findFn: func(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
		gotLimit = limit
		return nil, nil
	}}

	c, rec := newContext(http.MethodGet, "/api/v1/notifications", "", member)
	require.NoError(t, NewNotificationHandler(repo).ListNotifications(c))

	assert.Equal(t, defaultNotificationLimit, gotLimit)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestListNotifications_Handler_Errors(t *testing.T) {
	repo := &mockNotificationRepo{findFn: func(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
		return nil, errors.New("db down")
	}}

	c, _ := newContext(http.MethodGet, "/api/v1/notifications?limit=abc", "", member)
	assertHTTPError(t, NewNotificationHandler(repo).ListNotifications(c), http.StatusBadRequest)

	c, _ = newContext(http.MethodGet, "/api/v1/notifications", "", member)
	assertHTTPError(t, NewNotificationHandler(repo).ListNotifications(c), http.StatusInternalServerError)

	c, _ = newContext(http.MethodGet, "/api/v1/notifications", "", nil)
	assertHTTPError(t, NewNotificationHandler(repo).ListNotifications(c), http.StatusUnauthorized)
}
