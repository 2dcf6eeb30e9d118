package http

import (
	"context"

	"github.com/eve-ticketing/tickets/entities"
)

type TicketService interface {
	CreateTicket(ctx context.Context, req entities.TicketRequest, user entities.User) (entities.Ticket, error)
	UpdateTicket(ctx context.Context, id int64, patch entities.TicketPatch, user entities.User) (entities.Ticket, error)
	DeleteTicket(ctx context.Context, id int64, user entities.User) error
	PayForTickets(ctx context.Context, ids []int64, user entities.User) ([]entities.Ticket, error)
	ListTickets(
		ctx context.Context,
		filter entities.TicketFilter,
		sort entities.TicketSort,
		page entities.PageRequest,
		user entities.User,
	) (entities.TicketPage, error)
	GetTicket(ctx context.Context, id int64, user entities.User) (entities.Ticket, error)
	GetTicketField(ctx context.Context, id int64, field string, user entities.User) (entities.TicketField, error)
}

type Handler struct {
	tickets TicketService
}

func NewHandler(tickets TicketService) Handler {
	if tickets == nil {
		panic("missing ticket service")
	}

	return Handler{tickets: tickets}
}
