package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/eve-ticketing/tickets/entities"
)

type SeatsServiceClient struct {
	client client
}

func NewSeatsServiceClient(baseURL string, timeout time.Duration, editors ...RequestEditorFn) SeatsServiceClient {
	return SeatsServiceClient{client: newClient("seat", baseURL, timeout, editors...)}
}

// Reserve claims any free seat of the event for holder.
func (c SeatsServiceClient) Reserve(ctx context.Context, eventID int64, holder string) (entities.Seat, error) {
	return c.update(ctx, entities.SeatUpdate{
		EventID: &eventID,
		Reserve: true,
		Holder:  holder,
	}, "event_id", eventID)
}

// Occupy claims the given seat. A seat that is already taken is a Conflict.
func (c SeatsServiceClient) Occupy(ctx context.Context, seatID int64, holder string) (entities.Seat, error) {
	occupied := true
	return c.update(ctx, entities.SeatUpdate{
		ID:       &seatID,
		Occupied: &occupied,
		Holder:   holder,
	}, "seat_id", seatID)
}

// Release frees the seat if holder still owns it. Releasing a free seat
// succeeds.
func (c SeatsServiceClient) Release(ctx context.Context, seatID int64, holder string) error {
	occupied := false
	_, err := c.update(ctx, entities.SeatUpdate{
		ID:       &seatID,
		Occupied: &occupied,
		Holder:   holder,
	}, "seat_id", seatID)
	return err
}

// ReleaseHeld frees every seat of the event that holder owns. It undoes a
// Reserve whose outcome is unknown.
func (c SeatsServiceClient) ReleaseHeld(ctx context.Context, eventID int64, holder string) error {
	occupied := false
	_, err := c.update(ctx, entities.SeatUpdate{
		EventID:  &eventID,
		Occupied: &occupied,
		Holder:   holder,
	}, "event_id", eventID)
	return err
}

func (c SeatsServiceClient) update(ctx context.Context, update entities.SeatUpdate, field string, value any) (entities.Seat, error) {
	r := request{
		method: http.MethodPut,
		path:   "/seat/update",
		json:   update,
		field:  field,
		value:  value,
	}

	body, err := c.client.do(ctx, r)
	if err != nil {
		return entities.Seat{}, err
	}

	return decode[entities.Seat](c.client, r, body)
}

func (c SeatsServiceClient) Get(ctx context.Context, seatID int64) (entities.Seat, error) {
	r := request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/seat/id/%d", seatID),
		field:  "seat_id",
		value:  seatID,
	}

	body, err := c.client.do(ctx, r)
	if err != nil {
		return entities.Seat{}, err
	}

	return decode[entities.Seat](c.client, r, body)
}
