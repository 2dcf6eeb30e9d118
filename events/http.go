package events

import (
	"context"
	"net/http"
	"strconv"

	"github.com/eve-ticketing/tickets/entities"
	"github.com/labstack/echo/v4"
)

type EventRepository interface {
	ByID(ctx context.Context, id int64) (entities.Event, error)
	Update(ctx context.Context, patch entities.EventPatch) (entities.Event, error)
}

type Handler struct {
	repo EventRepository
}

func RegisterRoutes(g *echo.Group, repo EventRepository) {
	if repo == nil {
		panic("missing event repository")
	}
	h := Handler{repo: repo}

	g.GET("/event/id/:id", h.GetEvent)
	g.PUT("/event/update", h.PutEventUpdate)
}

func (h Handler) GetEvent(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return entities.NewValidationError(http.MethodGet, "id", c.Param("id"), "id must be a number")
	}

	event, err := h.repo.ByID(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, event)
}

func (h Handler) PutEventUpdate(c echo.Context) error {
	var patch entities.EventPatch
	if err := c.Bind(&patch); err != nil {
		return entities.NewValidationError(http.MethodPut, "body", nil, "invalid request body").WithCause(err)
	}
	if err := c.Validate(patch); err != nil {
		return err
	}

	event, err := h.repo.Update(c.Request().Context(), patch)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, event)
}
