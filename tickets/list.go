package tickets

import (
	"context"

	"github.com/eve-ticketing/tickets/entities"
)

// ticketFields lists the fields GetTicketField serves.
var ticketFields = map[string]func(t entities.Ticket) any{
	"code":         func(t entities.Ticket) any { return t.Code },
	"created_at":   func(t entities.Ticket) any { return t.CreatedAt },
	"firstname":    func(t entities.Ticket) any { return t.Firstname },
	"lastname":     func(t entities.Ticket) any { return t.Lastname },
	"phone_number": func(t entities.Ticket) any { return t.PhoneNumber },
	"cost":         func(t entities.Ticket) any { return t.Cost },
	"is_adult":     func(t entities.Ticket) any { return t.IsAdult },
	"is_student":   func(t entities.Ticket) any { return t.IsStudent },
	"event_id":     func(t entities.Ticket) any { return t.EventID },
	"seat_id":      func(t entities.Ticket) any { return t.SeatID },
	"user_id":      func(t entities.Ticket) any { return t.UserID },
	"paid":         func(t entities.Ticket) any { return t.Paid },
	"pdf":          func(t entities.Ticket) any { return t.Pdf },
}

// ListTickets returns one page of tickets. Callers that are not admins only
// ever see their own tickets and may not sort by owner.
func (o *Orchestrator) ListTickets(
	ctx context.Context,
	filter entities.TicketFilter,
	sort entities.TicketSort,
	page entities.PageRequest,
	user entities.User,
) (entities.TicketPage, error) {
	if !user.IsAdmin(o.config.AdminEmails) {
		if sort.Field == "user_id" {
			return entities.TicketPage{}, entities.NewValidationError("GET", "sort", sort.Field, "sorting by user_id is not allowed")
		}
		filter.UserID = &user.ID
	}

	page = page.Normalize()
	tickets, total, err := o.repo.List(ctx, filter, sort, page)
	if err != nil {
		return entities.TicketPage{}, err
	}

	return entities.NewTicketPage(tickets, page, total), nil
}

func (o *Orchestrator) GetTicket(ctx context.Context, id int64, user entities.User) (entities.Ticket, error) {
	ticket, err := o.repo.ByID(ctx, id)
	if err != nil {
		return entities.Ticket{}, err
	}
	if err := o.authorize("GET", ticket, user); err != nil {
		return entities.Ticket{}, err
	}
	return ticket, nil
}

func (o *Orchestrator) GetTicketField(ctx context.Context, id int64, field string, user entities.User) (entities.TicketField, error) {
	get, ok := ticketFields[field]
	if !ok {
		return entities.TicketField{}, entities.NewValidationError("GET", field, id, "field does not exists")
	}

	ticket, err := o.GetTicket(ctx, id, user)
	if err != nil {
		return entities.TicketField{}, err
	}

	return entities.TicketField{ID: ticket.ID, Key: field, Value: get(ticket)}, nil
}
