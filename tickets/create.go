package tickets

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/eve-ticketing/tickets/entities"
	"github.com/eve-ticketing/tickets/saga"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CreateTicket reserves a seat when the event has seats, issues the ticket
// document and stores the ticket. A failure releases the seat and discards
// the document before the error is returned.
func (o *Orchestrator) CreateTicket(ctx context.Context, req entities.TicketRequest, user entities.User) (entities.Ticket, error) {
	const method = "POST"

	if err := entities.ValidatePhoneNumber(method, req.PhoneNumber); err != nil {
		return entities.Ticket{}, err
	}

	event, err := o.guard.ValidateForBooking(ctx, req.EventID)
	if err != nil {
		return entities.Ticket{}, err
	}

	isStudent := entities.NormalizeStudent(req.IsAdult, req.IsStudent)
	cost, err := entities.TicketCost(event, req.IsAdult, isStudent)
	if err != nil {
		return entities.Ticket{}, err
	}

	ticket := entities.Ticket{
		Code:        uuid.NewString(),
		CreatedAt:   o.clock.Now().UTC(),
		Firstname:   req.Firstname,
		Lastname:    req.Lastname,
		PhoneNumber: req.PhoneNumber,
		Cost:        cost,
		IsAdult:     req.IsAdult,
		IsStudent:   isStudent,
		EventID:     event.ID,
		UserID:      user.ID,
	}

	var seat *entities.Seat
	var doc entities.Document

	s := saga.New("create-ticket", o.sagaOpts...)

	if event.RequiresSeats() {
		seatID := func() int64 {
			if seat == nil {
				return 0
			}
			return seat.ID
		}
		release, escalate := o.seatRelease(event.ID, seatID, ticket.Code)
		s.AddStep(saga.Step{
			Name: "reserve-seat",
			Action: func(ctx context.Context) error {
				reserved, err := o.seats.Reserve(ctx, event, ticket.Code)
				if err != nil {
					return err
				}
				seat = &reserved
				ticket.SeatID = &reserved.ID
				return nil
			},
			Compensate: release,
			Escalate:   escalate,
			Uncertain:  mayHaveApplied,
		})
	}

	discard, escalate := o.documentsDiscard(func() []string { return []string{doc.Link} })
	s.AddStep(saga.Step{
		Name: "issue-document",
		Action: func(ctx context.Context) error {
			issued, err := o.documents.Issue(ctx, ticket, event, seat, user)
			if err != nil {
				return err
			}
			doc = issued
			ticket.Pdf = issued.Link
			return nil
		},
		Compensate: discard,
		Escalate:   escalate,
	})

	s.AddStep(saga.Step{
		Name: "persist-ticket",
		Action: func(ctx context.Context) error {
			stored, err := o.repo.Add(ctx, ticket)
			if err != nil {
				return err
			}
			ticket = stored
			return nil
		},
	})

	if err := s.Execute(ctx); err != nil {
		return entities.Ticket{}, err
	}

	o.notify(ctx, ticketReserved, ticket, event.Name)
	o.email(ctx, entities.TicketEmailTemplate, ticket, event, seat, user)

	log.FromContext(ctx).WithFields(logrus.Fields{
		"ticket_code": ticket.Code,
		"event_id":    ticket.EventID,
	}).Info("Ticket created")

	return ticket, nil
}
