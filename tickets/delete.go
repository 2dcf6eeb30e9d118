package tickets

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/eve-ticketing/tickets/db"
	"github.com/eve-ticketing/tickets/entities"
	"github.com/eve-ticketing/tickets/saga"
	"github.com/sirupsen/logrus"
)

// DeleteTicket cancels a ticket. Deleting an already deleted ticket returns
// NotFound and does not touch the seat again.
func (o *Orchestrator) DeleteTicket(ctx context.Context, id int64, user entities.User) error {
	const method = "DELETE"

	stored, err := o.repo.ByID(ctx, id)
	if err != nil {
		return err
	}
	if err := o.authorize(method, stored, user); err != nil {
		return err
	}

	_, err = o.cancel(ctx, id, db.DeleteCondition{}, &user)
	return err
}

// ExpireTicket cancels a ticket left unpaid since cutoff. A ticket paid or
// canceled in the meantime is reported as NotFound.
func (o *Orchestrator) ExpireTicket(ctx context.Context, id int64, cutoff time.Time) error {
	_, err := o.cancel(ctx, id, db.DeleteCondition{UnpaidCreatedBefore: &cutoff}, nil)
	return err
}

// cancel is the single cancellation routine. Only the caller that deletes
// the row frees the seat, and the release is guarded by the ticket code so
// it never frees a seat that got a new holder.
func (o *Orchestrator) cancel(
	ctx context.Context,
	id int64,
	cond db.DeleteCondition,
	user *entities.User,
) (entities.Ticket, error) {
	deleted, err := o.repo.Delete(ctx, id, cond)
	if err != nil {
		return entities.Ticket{}, err
	}

	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"ticket_id":   deleted.ID,
		"ticket_code": deleted.Code,
	})

	s := saga.New("cancel-ticket", o.sagaOpts...)
	if deleted.HasSeat() {
		release, escalate := o.seatRelease(deleted.EventID, func() int64 { return *deleted.SeatID }, deleted.Code)
		s.OnSuccess(saga.Step{
			Name:     "release-seat",
			Action:   release,
			Escalate: escalate,
		})
	}
	if deleted.Pdf != "" {
		discard, escalate := o.documentsDiscard(func() []string { return []string{deleted.Pdf} })
		s.OnSuccess(saga.Step{
			Name:     "delete-document",
			Action:   discard,
			Escalate: escalate,
		})
	}
	if err := s.Execute(ctx); err != nil {
		return entities.Ticket{}, err
	}

	eventName := ""
	event, err := o.guard.Event(ctx, deleted.EventID)
	if err != nil {
		logger.WithError(err).Warn("Could not get event of canceled ticket")
	} else {
		eventName = event.Name
	}

	o.notify(ctx, ticketCanceled, deleted, eventName)
	if user != nil {
		owner, err := o.owner(ctx, deleted, *user)
		if err != nil {
			logger.WithError(err).Warn("Could not get owner of canceled ticket")
		} else {
			o.email(ctx, entities.TicketCanceledEmailTemplate, deleted, event, nil, owner)
		}
	}

	if cond.UnpaidCreatedBefore != nil {
		logger.Info("Ticket expired")
	} else {
		logger.Info("Ticket canceled")
	}

	return deleted, nil
}
