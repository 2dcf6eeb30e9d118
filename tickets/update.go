package tickets

import (
	"context"
	"slices"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/eve-ticketing/tickets/entities"
	"github.com/eve-ticketing/tickets/saga"
	"github.com/sirupsen/logrus"
)

// UpdateTicket applies patch to the ticket. A seat change occupies the new
// seat first and frees the old one only after the ticket points at the new
// seat. The previous document is deleted after the new link is stored.
func (o *Orchestrator) UpdateTicket(
	ctx context.Context,
	id int64,
	patch entities.TicketPatch,
	user entities.User,
) (entities.Ticket, error) {
	const method = "PUT"

	stored, err := o.repo.ByID(ctx, id)
	if err != nil {
		return entities.Ticket{}, err
	}
	if err := o.authorize(method, stored, user); err != nil {
		return entities.Ticket{}, err
	}

	ticket, changed := patch.Apply(stored)
	if len(changed) == 0 {
		return stored, nil
	}

	if slices.Contains(changed, "phone_number") {
		if err := entities.ValidatePhoneNumber(method, ticket.PhoneNumber); err != nil {
			return entities.Ticket{}, err
		}
	}

	event, err := o.guard.Event(ctx, ticket.EventID)
	if err != nil {
		return entities.Ticket{}, err
	}

	owner, err := o.owner(ctx, stored, user)
	if err != nil {
		return entities.Ticket{}, err
	}

	if entities.PricingChanged(changed) {
		ticket.Cost, err = entities.TicketCost(event, ticket.IsAdult, ticket.IsStudent)
		if err != nil {
			return entities.Ticket{}, err
		}
	}

	seatChanged := slices.Contains(changed, "seat_id")
	if seatChanged && !event.RequiresSeats() {
		return entities.Ticket{}, entities.NewValidationError(method, "seat_id", *ticket.SeatID, "event has no seats")
	}

	s := saga.New("update-ticket", o.sagaOpts...)

	var seat *entities.Seat
	if seatChanged {
		newSeatID := *ticket.SeatID
		release, escalate := o.seatRelease(event.ID, func() int64 { return newSeatID }, ticket.Code)
		s.AddStep(saga.Step{
			Name: "occupy-seat",
			Action: func(ctx context.Context) error {
				occupied, err := o.seats.Occupy(ctx, event, newSeatID, ticket.Code)
				if err != nil {
					return err
				}
				seat = &occupied
				return nil
			},
			Compensate: release,
			Escalate:   escalate,
			Uncertain:  mayHaveApplied,
		})

		if stored.HasSeat() {
			oldSeatID := *stored.SeatID
			release, escalate := o.seatRelease(event.ID, func() int64 { return oldSeatID }, ticket.Code)
			s.OnSuccess(saga.Step{
				Name:     "release-previous-seat",
				Action:   release,
				Escalate: escalate,
			})
		}
	} else if ticket.HasSeat() {
		if seat, err = o.seats.Seat(ctx, ticket.SeatID); err != nil {
			return entities.Ticket{}, err
		}
	}

	var doc entities.Document
	discard, escalate := o.documentsDiscard(func() []string { return []string{doc.Link} })
	s.AddStep(saga.Step{
		Name: "issue-document",
		Action: func(ctx context.Context) error {
			issued, err := o.documents.Issue(ctx, ticket, event, seat, owner)
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
			return o.repo.Update(ctx, stored, ticket)
		},
	})

	if stored.Pdf != "" {
		discardPrevious, escalatePrevious := o.documentsDiscard(func() []string { return []string{stored.Pdf} })
		s.OnSuccess(saga.Step{
			Name:     "delete-previous-document",
			Action:   discardPrevious,
			Escalate: escalatePrevious,
		})
	}

	if err := s.Execute(ctx); err != nil {
		return entities.Ticket{}, err
	}

	o.notify(ctx, ticketUpdated, ticket, event.Name)
	o.email(ctx, entities.TicketEmailTemplate, ticket, event, seat, owner)

	log.FromContext(ctx).WithFields(logrus.Fields{
		"ticket_id": ticket.ID,
		"changed":   changed,
	}).Info("Ticket updated")

	return ticket, nil
}
