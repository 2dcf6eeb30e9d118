package http

import (
	"net/http"

	libHttp "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// APIPrefix is where every module mounts its routes.
const APIPrefix = "/api/v1"

// NewHttpRouter returns the echo instance shared by all modules, with
// /health and /metrics already mounted.
func NewHttpRouter(serviceName string) *echo.Echo {
	e := libHttp.NewEcho()

	e.Use(otelecho.Middleware(serviceName))
	e.Validator = NewValidator()
	e.HTTPErrorHandler = HandleError

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

func RegisterTicketRoutes(g *echo.Group, tickets TicketService, auth AuthService) {
	handler := NewHandler(tickets)

	tg := g.Group("/ticket", Authenticate(auth))
	tg.GET("/all", handler.GetTickets)
	tg.GET("/id/:id", handler.GetTicket)
	tg.GET("/id/:id/field/:field", handler.GetTicketField)
	tg.POST("/create", handler.PostTicket)
	tg.PUT("/update", handler.PutTicket)
	tg.DELETE("/id/:id", handler.DeleteTicket)
	tg.PUT("/pay", handler.PutPay)
}
