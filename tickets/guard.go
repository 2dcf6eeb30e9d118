package tickets

import (
	"context"

	"github.com/eve-ticketing/tickets/entities"
	"github.com/jonboulle/clockwork"
)

type EventsService interface {
	Get(ctx context.Context, eventID int64) (entities.Event, error)
	SetSoldOut(ctx context.Context, eventID int64, soldOut bool) error
}

// EventGuard decides whether an event still takes bookings.
type EventGuard struct {
	events EventsService
	clock  clockwork.Clock
}

func NewEventGuard(events EventsService, clock clockwork.Clock) EventGuard {
	if events == nil {
		panic("missing events service")
	}
	if clock == nil {
		panic("missing clock")
	}
	return EventGuard{events: events, clock: clock}
}

func (g EventGuard) Event(ctx context.Context, eventID int64) (entities.Event, error) {
	return g.events.Get(ctx, eventID)
}

func (g EventGuard) ValidateForBooking(ctx context.Context, eventID int64) (entities.Event, error) {
	event, err := g.events.Get(ctx, eventID)
	if err != nil {
		return entities.Event{}, err
	}
	if event.Started(g.clock.Now()) {
		return entities.Event{}, entities.NewConflictError("POST", "event_id", eventID, "event has already started")
	}
	if event.IsSoldOut {
		return entities.Event{}, entities.NewConflictError("POST", "event_id", eventID, "event is sold out")
	}
	return event, nil
}

func (g EventGuard) SetSoldOut(ctx context.Context, eventID int64, soldOut bool) error {
	return g.events.SetSoldOut(ctx, eventID, soldOut)
}
