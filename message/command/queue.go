package command

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/eve-ticketing/tickets/entities"
)

// NewCommandBus sends every command to its own compensations.<Name> topic.
func NewCommandBus(pub message.Publisher) *cqrs.CommandBus {
	commandBus, err := cqrs.NewCommandBusWithConfig(
		pub,
		cqrs.CommandBusConfig{
			GeneratePublishTopic: func(params cqrs.CommandBusGeneratePublishTopicParams) (string, error) {
				return Topic(params.CommandName), nil
			},
			Marshaler: marshaler,
		},
	)
	if err != nil {
		panic(err)
	}

	return commandBus
}

// Queue hands compensations that failed in place over to the command
// handlers.
type Queue struct {
	bus *cqrs.CommandBus
}

func NewQueue(bus *cqrs.CommandBus) Queue {
	if bus == nil {
		panic("missing command bus")
	}

	return Queue{bus: bus}
}

func (q Queue) ReleaseSeat(ctx context.Context, cmd entities.ReleaseSeat) error {
	if err := q.bus.Send(ctx, &cmd); err != nil {
		return fmt.Errorf("could not queue release of seat %d: %w", cmd.SeatID, err)
	}
	return nil
}

func (q Queue) DiscardDocument(ctx context.Context, cmd entities.DiscardDocument) error {
	if err := q.bus.Send(ctx, &cmd); err != nil {
		return fmt.Errorf("could not queue discard of document %s: %w", cmd.Link, err)
	}
	return nil
}
