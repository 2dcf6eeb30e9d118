package service

import (
	"github.com/eve-ticketing/tickets/api"
	"github.com/eve-ticketing/tickets/config"
	ticketsHttp "github.com/eve-ticketing/tickets/http"
	"github.com/eve-ticketing/tickets/tickets"
)

// AuthService validates callers and finds ticket owners.
type AuthService interface {
	ticketsHttp.AuthService
	tickets.UserDirectory
}

// Clients are the services this one talks to. Seats and Events point back at
// this process when it runs those modules itself.
type Clients struct {
	Events  tickets.EventsService
	Seats   tickets.SeatsService
	Auth    AuthService
	Pdf     tickets.PdfService
	Storage tickets.StorageService
}

func NewClients(cfg config.Config) Clients {
	timeout := cfg.HTTPClientTimeout

	clients := Clients{
		Events: api.NewEventsServiceClient(cfg.EventServiceURL, timeout),
		Seats:  api.NewSeatsServiceClient(cfg.SeatServiceURL, timeout),
	}

	if cfg.Runs(config.ModuleTickets) {
		clients.Auth = api.NewAuthServiceClient(cfg.AuthServiceURL, timeout)
		clients.Pdf = api.NewPdfServiceClient(cfg.PdfServiceURL, timeout)
		clients.Storage = api.NewStorageServiceClient(cfg.StorageServiceURL, timeout)
	}

	return clients
}
