package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Eursukkul/outing-service/internal/dto"
	"github.com/Eursukkul/outing-service/internal/middleware"
	"github.com/Eursukkul/outing-service/internal/models"
	"github.com/Eursukkul/outing-service/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Sweeper interface {
	UpdateAllStates(ctx context.Context) (int, error)
}

type OutingHandler struct {
	svc         service.OutingService
	sweeper     Sweeper
	sweepOnRead bool
	logger      *zap.Logger
}

// NewOutingHandler wires the outing routes. When sweepOnRead is set, listing
// outings first brings every state up to date.
func NewOutingHandler(svc service.OutingService, sweeper Sweeper, sweepOnRead bool, logger *zap.Logger) *OutingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutingHandler{svc: svc, sweeper: sweeper, sweepOnRead: sweepOnRead, logger: logger}
}

func (h *OutingHandler) RegisterRoutes(g *echo.Group) {
	outings := g.Group("/outings")
	outings.POST("", h.CreateOuting)
	outings.GET("", h.ListOutings)
	outings.GET("/:id", h.GetOuting)
	outings.PUT("/:id", h.EditOuting)
	outings.DELETE("/:id", h.DeleteOuting)
	outings.POST("/:id/publish", h.PublishOuting)
	outings.POST("/:id/cancel", h.CancelOuting)
	outings.POST("/:id/registrations", h.Register)
	outings.DELETE("/:id/registrations", h.Unregister)

	g.POST("/admin/sweep", h.Sweep)
}

func (h *OutingHandler) CreateOuting(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	var req dto.OutingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	outing, err := h.svc.Create(c.Request().Context(), actor, req.ToInput())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToOutingResponse(outing))
}

func (h *OutingHandler) ListOutings(c echo.Context) error {
	ctx := c.Request().Context()
	if h.sweepOnRead && h.sweeper != nil {
		if _, err := h.sweeper.UpdateAllStates(ctx); err != nil {
			// Stale states are still worth listing.
			h.logger.Warn("sweep before list failed", zap.Error(err))
		}
	}

	outings, err := h.svc.List(ctx)
	if err != nil {
		return toHTTPError(err)
	}

	resp := make([]dto.OutingResponse, len(outings))
	for i := range outings {
		resp[i] = dto.ToOutingResponse(&outings[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *OutingHandler) GetOuting(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	outing, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToOutingResponse(outing))
}

func (h *OutingHandler) EditOuting(c echo.Context) error {
	id, actor, err := idAndActor(c)
	if err != nil {
		return err
	}

	var req dto.OutingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	outing, err := h.svc.Edit(c.Request().Context(), id, actor, req.ToInput())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToOutingResponse(outing))
}

func (h *OutingHandler) DeleteOuting(c echo.Context) error {
	id, actor, err := idAndActor(c)
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.Request().Context(), id, actor); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *OutingHandler) PublishOuting(c echo.Context) error {
	return h.command(c, h.svc.Publish)
}

func (h *OutingHandler) CancelOuting(c echo.Context) error {
	id, actor, err := idAndActor(c)
	if err != nil {
		return err
	}

	var req dto.CancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	outing, err := h.svc.Cancel(c.Request().Context(), id, actor, req.Reason)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToOutingResponse(outing))
}

func (h *OutingHandler) Register(c echo.Context) error {
	return h.command(c, h.svc.Register)
}

func (h *OutingHandler) Unregister(c echo.Context) error {
	return h.command(c, h.svc.Unregister)
}

// Sweep runs a state sweep on demand. Admin only.
func (h *OutingHandler) Sweep(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	if !actor.Admin {
		return toHTTPError(service.ErrNotAuthorized)
	}
	if h.sweeper == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "sweep not available")
	}

	n, err := h.sweeper.UpdateAllStates(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.SweepResponse{Updated: n})
}

type actorCommand func(ctx context.Context, id uint, actor service.Actor) (*models.Outing, error)

func (h *OutingHandler) command(c echo.Context, run actorCommand) error {
	id, actor, err := idAndActor(c)
	if err != nil {
		return err
	}

	outing, err := run(c.Request().Context(), id, actor)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToOutingResponse(outing))
}

// toHTTPError maps service errors to status codes. The original error rides
// along as the internal error so the error handler can expose its kind.
func toHTTPError(err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		code = http.StatusNotFound
	case errors.Is(err, service.ErrNotAuthorized):
		code = http.StatusForbidden
	case errors.Is(err, service.ErrAlreadyRegistered),
		errors.Is(err, service.ErrEventFull),
		errors.Is(err, service.ErrConcurrentUpdate):
		code = http.StatusConflict
	case service.IsDomainError(err):
		code = http.StatusBadRequest
	}
	return echo.NewHTTPError(code, err.Error()).SetInternal(err)
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid outing id")
	}
	return uint(id), nil
}

func actorOf(c echo.Context) (service.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return service.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	return actor, nil
}

func idAndActor(c echo.Context) (uint, service.Actor, error) {
	id, err := parseID(c)
	if err != nil {
		return 0, service.Actor{}, err
	}
	actor, err := actorOf(c)
	if err != nil {
		return 0, service.Actor{}, err
	}
	return id, actor, nil
}
