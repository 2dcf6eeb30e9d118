package api

import (
	"context"
	"sync"

	"github.com/eve-ticketing/tickets/entities"
)

type EventsServiceClientMock struct {
	mock sync.Mutex

	Events       map[int64]entities.Event
	SoldOutCalls int
}

func NewEventsServiceClientMock(events ...entities.Event) *EventsServiceClientMock {
	m := &EventsServiceClientMock{Events: map[int64]entities.Event{}}
	for _, event := range events {
		m.Events[event.ID] = event
	}
	return m
}

func (c *EventsServiceClientMock) Get(ctx context.Context, eventID int64) (entities.Event, error) {
	c.mock.Lock()
	defer c.mock.Unlock()

	event, ok := c.Events[eventID]
	if !ok {
		return entities.Event{}, entities.NewNotFoundError("GET", "event_id", eventID, "event not found")
	}
	return event, nil
}

func (c *EventsServiceClientMock) SetSoldOut(ctx context.Context, eventID int64, soldOut bool) error {
	c.mock.Lock()
	defer c.mock.Unlock()

	event, ok := c.Events[eventID]
	if !ok {
		return entities.NewNotFoundError("PUT", "id", eventID, "event not found")
	}
	event.IsSoldOut = soldOut
	c.Events[eventID] = event
	c.SoldOutCalls++

	return nil
}
