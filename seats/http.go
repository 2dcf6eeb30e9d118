package seats

import (
	"net/http"
	"strconv"

	"github.com/eve-ticketing/tickets/entities"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	service Service
}

func RegisterRoutes(g *echo.Group, service Service) {
	h := Handler{service: service}

	g.PUT("/seat/update", h.PutSeatUpdate)
	g.GET("/seat/id/:id", h.GetSeat)
	g.POST("/seat/create", h.PostSeatCreate)
}

func (h Handler) PutSeatUpdate(c echo.Context) error {
	var update entities.SeatUpdate
	if err := c.Bind(&update); err != nil {
		return entities.NewValidationError(http.MethodPut, "body", nil, "invalid request body").WithCause(err)
	}

	seat, err := h.service.Update(c.Request().Context(), update)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, seat)
}

func (h Handler) GetSeat(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return entities.NewValidationError(http.MethodGet, "id", c.Param("id"), "id must be a number")
	}

	seat, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, seat)
}

func (h Handler) PostSeatCreate(c echo.Context) error {
	var create entities.SeatCreate
	if err := c.Bind(&create); err != nil {
		return entities.NewValidationError(http.MethodPost, "body", nil, "invalid request body").WithCause(err)
	}
	if err := c.Validate(create); err != nil {
		return err
	}

	seat, err := h.service.Create(c.Request().Context(), create)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, seat)
}
