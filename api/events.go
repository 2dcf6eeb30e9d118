package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/eve-ticketing/tickets/entities"
)

type EventsServiceClient struct {
	client client
}

func NewEventsServiceClient(baseURL string, timeout time.Duration, editors ...RequestEditorFn) EventsServiceClient {
	return EventsServiceClient{client: newClient("event", baseURL, timeout, editors...)}
}

func (c EventsServiceClient) Get(ctx context.Context, eventID int64) (entities.Event, error) {
	r := request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/event/id/%d", eventID),
		field:  "event_id",
		value:  eventID,
	}

	body, err := c.client.do(ctx, r)
	if err != nil {
		return entities.Event{}, err
	}

	return decode[entities.Event](c.client, r, body)
}

// SetSoldOut is idempotent, setting the current value again is a no-op on
// the event side.
func (c EventsServiceClient) SetSoldOut(ctx context.Context, eventID int64, soldOut bool) error {
	_, err := c.client.do(ctx, request{
		method: http.MethodPut,
		path:   "/event/update",
		json:   entities.EventPatch{ID: eventID, IsSoldOut: &soldOut},
		field:  "is_sold_out",
		value:  soldOut,
	})
	return err
}
