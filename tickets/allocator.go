package tickets

import (
	"context"

	"github.com/eve-ticketing/tickets/entities"
)

type SeatsService interface {
	Reserve(ctx context.Context, eventID int64, holder string) (entities.Seat, error)
	Occupy(ctx context.Context, seatID int64, holder string) (entities.Seat, error)
	Release(ctx context.Context, seatID int64, holder string) error
	ReleaseHeld(ctx context.Context, eventID int64, holder string) error
	Get(ctx context.Context, seatID int64) (entities.Seat, error)
}

// SeatAllocator holds seats for tickets. The holder of a seat is always the
// code of the ticket it was claimed for.
type SeatAllocator struct {
	seats SeatsService
}

func NewSeatAllocator(seats SeatsService) SeatAllocator {
	if seats == nil {
		panic("missing seats service")
	}
	return SeatAllocator{seats: seats}
}

func (a SeatAllocator) Reserve(ctx context.Context, event entities.Event, holder string) (entities.Seat, error) {
	return a.seats.Reserve(ctx, event.ID, holder)
}

// Occupy claims a specific seat, which must belong to the event.
func (a SeatAllocator) Occupy(ctx context.Context, event entities.Event, seatID int64, holder string) (entities.Seat, error) {
	seat, err := a.seats.Get(ctx, seatID)
	if err != nil {
		return entities.Seat{}, err
	}
	if seat.EventID != event.ID {
		return entities.Seat{}, entities.NewValidationError("PUT", "seat_id", seatID, "seat does not belong to the event")
	}
	return a.seats.Occupy(ctx, seatID, holder)
}

func (a SeatAllocator) Release(ctx context.Context, seatID int64, holder string) error {
	return a.seats.Release(ctx, seatID, holder)
}

// ReleaseHeld frees the seats of the event held by holder. It undoes a
// Reserve that failed without telling which seat it took.
func (a SeatAllocator) ReleaseHeld(ctx context.Context, eventID int64, holder string) error {
	return a.seats.ReleaseHeld(ctx, eventID, holder)
}

func (a SeatAllocator) Seat(ctx context.Context, seatID *int64) (*entities.Seat, error) {
	if seatID == nil {
		return nil, nil
	}
	seat, err := a.seats.Get(ctx, *seatID)
	if err != nil {
		return nil, err
	}
	return &seat, nil
}
