package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/eve-ticketing/tickets/entities"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type payRequest struct {
	ID  *int64  `json:"id"`
	IDs []int64 `json:"ids"`
}

func (h Handler) GetTickets(c echo.Context) error {
	const method = http.MethodGet

	filter, err := parseTicketFilter(c)
	if err != nil {
		return err
	}

	sort, err := entities.ParseTicketSort(c.QueryParam("sort"))
	if err != nil {
		return err
	}

	var page entities.PageRequest
	if page.Page, err = queryInt(c, method, "page", 0); err != nil {
		return err
	}
	if page.Size, err = queryInt(c, method, "size", entities.DefaultPageSize); err != nil {
		return err
	}

	tickets, err := h.tickets.ListTickets(c.Request().Context(), filter, sort, page, userFromContext(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tickets)
}

func (h Handler) GetTicket(c echo.Context) error {
	id, err := pathID(c, http.MethodGet)
	if err != nil {
		return err
	}

	ticket, err := h.tickets.GetTicket(c.Request().Context(), id, userFromContext(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ticket)
}

func (h Handler) GetTicketField(c echo.Context) error {
	id, err := pathID(c, http.MethodGet)
	if err != nil {
		return err
	}

	field, err := h.tickets.GetTicketField(c.Request().Context(), id, c.Param("field"), userFromContext(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, field)
}

func (h Handler) PostTicket(c echo.Context) error {
	var request entities.TicketRequest
	if err := c.Bind(&request); err != nil {
		return entities.NewValidationError(http.MethodPost, "body", nil, "invalid request body").WithCause(err)
	}
	if err := c.Validate(request); err != nil {
		return err
	}

	ticket, err := h.tickets.CreateTicket(c.Request().Context(), request, userFromContext(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, ticket)
}

func (h Handler) PutTicket(c echo.Context) error {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return entities.NewValidationError(http.MethodPut, "body", nil, "invalid request body").WithCause(err)
	}

	id, patch, err := entities.ParseTicketPatch(body)
	if err != nil {
		return err
	}

	ticket, err := h.tickets.UpdateTicket(c.Request().Context(), id, patch, userFromContext(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ticket)
}

func (h Handler) DeleteTicket(c echo.Context) error {
	id, err := pathID(c, http.MethodDelete)
	if err != nil {
		return err
	}

	if err := h.tickets.DeleteTicket(c.Request().Context(), id, userFromContext(c)); err != nil {
		return err
	}

	return c.NoContent(http.StatusOK)
}

// PutPay accepts a single "id", a list of "ids" or both.
func (h Handler) PutPay(c echo.Context) error {
	var request payRequest
	if err := c.Bind(&request); err != nil {
		return entities.NewValidationError(http.MethodPut, "body", nil, "invalid request body").WithCause(err)
	}

	ids := request.IDs
	if request.ID != nil {
		ids = append([]int64{*request.ID}, ids...)
	}

	tickets, err := h.tickets.PayForTickets(c.Request().Context(), ids, userFromContext(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tickets)
}

func pathID(c echo.Context, method string) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, entities.NewValidationError(method, "id", c.Param("id"), "id must be a positive number")
	}
	return id, nil
}

func queryInt(c echo.Context, method, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, entities.NewValidationError(method, name, raw, "must be a number")
	}
	return v, nil
}

// optionalQuery parses the query parameter when it is present.
func optionalQuery[T any](c echo.Context, name string, parse func(string) (T, error)) (*T, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := parse(raw)
	if err != nil {
		return nil, entities.NewValidationError(http.MethodGet, name, raw, "invalid value").WithCause(err)
	}
	return &v, nil
}

func parseString(s string) (string, error) { return s, nil }

func parseInt64(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

func parseDate(s string) (time.Time, error) { return time.Parse(entities.DateLayout, s) }

func parseTicketFilter(c echo.Context) (entities.TicketFilter, error) {
	var (
		filter entities.TicketFilter
		err    error
	)

	if filter.Code, err = optionalQuery(c, "code", parseString); err != nil {
		return filter, err
	}
	if filter.Firstname, err = optionalQuery(c, "firstname", parseString); err != nil {
		return filter, err
	}
	if filter.Lastname, err = optionalQuery(c, "lastname", parseString); err != nil {
		return filter, err
	}
	if filter.PhoneNumber, err = optionalQuery(c, "phone_number", parseString); err != nil {
		return filter, err
	}
	if filter.MinCost, err = optionalQuery(c, "min_cost", decimal.NewFromString); err != nil {
		return filter, err
	}
	if filter.MaxCost, err = optionalQuery(c, "max_cost", decimal.NewFromString); err != nil {
		return filter, err
	}
	if filter.MinDate, err = optionalQuery(c, "min_date", parseDate); err != nil {
		return filter, err
	}
	if filter.MaxDate, err = optionalQuery(c, "max_date", parseDate); err != nil {
		return filter, err
	}
	if filter.UserID, err = optionalQuery(c, "user_id", parseInt64); err != nil {
		return filter, err
	}
	if filter.EventID, err = optionalQuery(c, "event_id", parseInt64); err != nil {
		return filter, err
	}
	if filter.SeatID, err = optionalQuery(c, "seat_id", parseInt64); err != nil {
		return filter, err
	}
	if filter.Paid, err = optionalQuery(c, "paid", strconv.ParseBool); err != nil {
		return filter, err
	}

	return filter, nil
}
