package tickets

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/eve-ticketing/tickets/entities"
	"github.com/eve-ticketing/tickets/saga"
	"github.com/samber/lo"
)

// PayForTickets marks all tickets as paid or none of them. Every ticket must
// exist, be accessible by user and still be inside the payment window.
func (o *Orchestrator) PayForTickets(ctx context.Context, ids []int64, user entities.User) ([]entities.Ticket, error) {
	const method = "PUT"

	if len(ids) == 0 {
		return nil, entities.NewValidationError(method, "ids", ids, "empty ticket id list")
	}
	ids = lo.Uniq(ids)
	now := o.clock.Now()

	tickets, err := o.repo.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := o.checkPayable(ids, tickets, user, now); err != nil {
		return nil, err
	}
	read := lo.KeyBy(tickets, func(t entities.Ticket) int64 { return t.ID })

	events := map[int64]entities.Event{}
	seats := map[int64]*entities.Seat{}
	owners := map[int64]entities.User{}
	for _, ticket := range tickets {
		if _, ok := owners[ticket.UserID]; !ok {
			owner, err := o.owner(ctx, ticket, user)
			if err != nil {
				return nil, err
			}
			owners[ticket.UserID] = owner
		}
		if _, ok := events[ticket.EventID]; !ok {
			event, err := o.guard.Event(ctx, ticket.EventID)
			if err != nil {
				return nil, err
			}
			events[ticket.EventID] = event
		}
		seat, err := o.seats.Seat(ctx, ticket.SeatID)
		if err != nil {
			return nil, err
		}
		seats[ticket.ID] = seat
	}

	docs := map[int64]entities.Document{}
	issuedLinks := func() []string {
		return lo.MapToSlice(docs, func(_ int64, doc entities.Document) string { return doc.Link })
	}
	previousLinks := lo.FilterMap(tickets, func(t entities.Ticket, _ int) (string, bool) { return t.Pdf, t.Pdf != "" })

	s := saga.New("pay-tickets", o.sagaOpts...)

	discard, escalate := o.documentsDiscard(issuedLinks)
	s.AddStep(saga.Step{
		Name: "issue-documents",
		Action: func(ctx context.Context) error {
			for _, ticket := range tickets {
				ticket.Paid = true
				doc, err := o.documents.Issue(ctx, ticket, events[ticket.EventID], seats[ticket.ID], owners[ticket.UserID])
				if err != nil {
					return err
				}
				docs[ticket.ID] = doc
			}
			return nil
		},
		Compensate: discard,
		Escalate:   escalate,
	})

	var paid []entities.Ticket
	s.AddStep(saga.Step{
		Name: "persist-payment",
		Action: func(ctx context.Context) error {
			var err error
			paid, err = o.repo.PayForTickets(ctx, ids, func(locked []entities.Ticket) ([]entities.Ticket, error) {
				// the tickets may have been canceled, expired or changed since
				// they were read
				if err := o.checkPayable(ids, locked, user, o.clock.Now()); err != nil {
					return nil, err
				}
				for _, ticket := range locked {
					if !ticket.SameState(read[ticket.ID]) {
						return nil, entities.NewConflictError(method, "ids", ids, "ticket was changed in the meantime")
					}
				}
				for i := range locked {
					locked[i].Paid = true
					locked[i].Pdf = docs[locked[i].ID].Link
				}
				return locked, nil
			})
			return err
		},
	})

	discardPrevious, escalatePrevious := o.documentsDiscard(func() []string { return previousLinks })
	s.OnSuccess(saga.Step{
		Name:     "delete-previous-documents",
		Action:   discardPrevious,
		Escalate: escalatePrevious,
	})

	if err := s.Execute(ctx); err != nil {
		return nil, err
	}

	for _, ticket := range paid {
		event := events[ticket.EventID]
		o.notify(ctx, ticketPaid, ticket, event.Name)
		o.email(ctx, entities.TicketEmailTemplate, ticket, event, seats[ticket.ID], owners[ticket.UserID])
	}

	log.FromContext(ctx).WithField("ticket_ids", ids).Info("Tickets paid")

	return paid, nil
}

func (o *Orchestrator) checkPayable(ids []int64, tickets []entities.Ticket, user entities.User, now time.Time) error {
	const method = "PUT"

	if len(tickets) != len(ids) {
		return entities.NewNotFoundError(method, "ids", ids, "not all tickets with provided ids found")
	}
	for _, ticket := range tickets {
		if err := o.authorize(method, ticket, user); err != nil {
			return err
		}
	}
	if lo.SomeBy(tickets, func(t entities.Ticket) bool { return t.PaymentExpired(now, o.config.PaymentWindow) }) {
		return entities.NewConflictError(method, "ids", ids, "some tickets with provided ids are expired")
	}
	return nil
}
