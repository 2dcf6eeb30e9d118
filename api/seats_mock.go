package api

import (
	"context"
	"slices"
	"sync"

	"github.com/eve-ticketing/tickets/entities"
	"github.com/samber/lo"
)

// SeatsServiceClientMock behaves like the seat service: claims are atomic,
// releases are holder guarded and every transition corrects the sold-out
// flag of the event.
type SeatsServiceClientMock struct {
	mock sync.Mutex

	Seats  map[int64]entities.Seat
	Events *EventsServiceClientMock

	// ReleaseErr, when set, is returned by the next ReleaseFailures releases.
	ReleaseErr      error
	ReleaseFailures int
	Releases        int
}

func NewSeatsServiceClientMock(events *EventsServiceClientMock, seats ...entities.Seat) *SeatsServiceClientMock {
	m := &SeatsServiceClientMock{Seats: map[int64]entities.Seat{}, Events: events}
	for _, seat := range seats {
		m.Seats[seat.ID] = seat
	}
	return m
}

func (c *SeatsServiceClientMock) Reserve(ctx context.Context, eventID int64, holder string) (entities.Seat, error) {
	c.mock.Lock()
	defer c.mock.Unlock()

	ids := lo.Keys(c.Seats)
	slices.Sort(ids)
	for _, id := range ids {
		seat := c.Seats[id]
		if seat.EventID != eventID || seat.Occupied {
			continue
		}
		seat.Occupied = true
		seat.Holder = holder
		c.Seats[id] = seat
		c.syncSoldOut(ctx, eventID)
		return seat, nil
	}

	return entities.Seat{}, entities.NewConflictError("PUT", "event_id", eventID, "no seat available")
}

func (c *SeatsServiceClientMock) Occupy(ctx context.Context, seatID int64, holder string) (entities.Seat, error) {
	c.mock.Lock()
	defer c.mock.Unlock()

	seat, ok := c.Seats[seatID]
	if !ok {
		return entities.Seat{}, entities.NewNotFoundError("PUT", "id", seatID, "seat not found")
	}
	if seat.Occupied && seat.Holder != holder {
		return entities.Seat{}, entities.NewConflictError("PUT", "id", seatID, "seat is already occupied")
	}
	seat.Occupied = true
	seat.Holder = holder
	c.Seats[seatID] = seat
	c.syncSoldOut(ctx, seat.EventID)

	return seat, nil
}

func (c *SeatsServiceClientMock) Release(ctx context.Context, seatID int64, holder string) error {
	c.mock.Lock()
	defer c.mock.Unlock()

	if c.ReleaseFailures > 0 {
		c.ReleaseFailures--
		return c.ReleaseErr
	}

	seat, ok := c.Seats[seatID]
	if !ok {
		return entities.NewNotFoundError("PUT", "id", seatID, "seat not found")
	}
	if !seat.Occupied || (holder != "" && seat.Holder != holder) {
		return nil
	}
	seat.Occupied = false
	seat.Holder = ""
	c.Seats[seatID] = seat
	c.Releases++
	c.syncSoldOut(ctx, seat.EventID)

	return nil
}

func (c *SeatsServiceClientMock) ReleaseHeld(ctx context.Context, eventID int64, holder string) error {
	c.mock.Lock()
	defer c.mock.Unlock()

	if c.ReleaseFailures > 0 {
		c.ReleaseFailures--
		return c.ReleaseErr
	}

	for id, seat := range c.Seats {
		if seat.EventID != eventID || !seat.Occupied || seat.Holder != holder {
			continue
		}
		seat.Occupied = false
		seat.Holder = ""
		c.Seats[id] = seat
		c.Releases++
	}
	c.syncSoldOut(ctx, eventID)

	return nil
}

func (c *SeatsServiceClientMock) Get(ctx context.Context, seatID int64) (entities.Seat, error) {
	c.mock.Lock()
	defer c.mock.Unlock()

	seat, ok := c.Seats[seatID]
	if !ok {
		return entities.Seat{}, entities.NewNotFoundError("GET", "id", seatID, "seat not found")
	}
	return seat, nil
}

func (c *SeatsServiceClientMock) syncSoldOut(ctx context.Context, eventID int64) {
	if c.Events == nil {
		return
	}
	event, err := c.Events.Get(ctx, eventID)
	if err != nil {
		return
	}
	occupied := lo.CountBy(lo.Values(c.Seats), func(s entities.Seat) bool {
		return s.EventID == eventID && s.Occupied
	})
	soldOut := occupied >= event.MaxTicketAmount
	if soldOut != event.IsSoldOut {
		_ = c.Events.SetSoldOut(ctx, eventID, soldOut)
	}
}
