package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/eve-ticketing/tickets/api"
	"github.com/eve-ticketing/tickets/entities"
	"github.com/labstack/echo/v4"
)

// HandleError writes err as the error payload. The kind goes to the
// api.ErrorKindHeader header so other services decode the same kind back.
func HandleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	logger := log.FromContext(c.Request().Context()).
		WithError(err).
		WithField("path", c.Path())

	var appErr *entities.Error
	if !errors.As(err, &appErr) {
		appErr = fromUnexpected(err, c)
	}
	if appErr.Method == "" {
		appErr.Method = c.Request().Method
	}

	status := http.StatusBadRequest
	switch appErr.Kind {
	case entities.KindNotFound:
		status = http.StatusNotFound
	case entities.KindUnknown:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError || appErr.Kind == entities.KindDownstream {
		logger.Error("Request failed")
	} else {
		logger.Info("Request rejected")
	}

	c.Response().Header().Set(api.ErrorKindHeader, appErr.Kind.String())

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, appErr)
	}
	if err != nil {
		logger.WithError(err).Error("Could not write error response")
	}
}

func fromUnexpected(err error, c echo.Context) *entities.Error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		description := fmt.Sprint(httpErr.Message)
		switch {
		case httpErr.Code == http.StatusNotFound:
			return entities.NewNotFoundError(c.Request().Method, "path", c.Request().URL.Path, description)
		case httpErr.Code < http.StatusInternalServerError:
			return entities.NewValidationError(c.Request().Method, "request", c.Request().URL.Path, description)
		}
	}

	return &entities.Error{
		Kind:        entities.KindUnknown,
		Method:      c.Request().Method,
		Field:       "request",
		Value:       c.Request().URL.Path,
		Description: "internal server error",
		Err:         err,
	}
}
