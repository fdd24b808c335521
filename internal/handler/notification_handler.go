package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Eursukkul/outing-service/internal/dto"
	"github.com/Eursukkul/outing-service/internal/models"
	"github.com/labstack/echo/v4"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

type NotificationLister interface {
	FindByUserID(ctx context.Context, userID uint, limit int) ([]models.Notification, error)
}

type NotificationHandler struct {
	repo NotificationLister
}

func NewNotificationHandler(repo NotificationLister) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

func (h *NotificationHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications", h.ListNotifications)
}

// ListNotifications returns the caller's notifications, newest first.
func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	limit := defaultNotificationLimit
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = min(n, maxNotificationLimit)
	}

	notifications, err := h.repo.FindByUserID(c.Request().Context(), actor.UserID, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	}

	resp := make([]dto.NotificationResponse, len(notifications))
	for i := range notifications {
		resp[i] = dto.ToNotificationResponse(&notifications[i])
	}
	return c.JSON(http.StatusOK, resp)
}
