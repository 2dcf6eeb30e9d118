package event

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/eve-ticketing/tickets/entities"
)

// Publisher sends notifications and emails in the background. Delivery is
// at most once: failures are logged and dropped.
type Publisher struct {
	bus *cqrs.EventBus
	wg  sync.WaitGroup
}

func NewPublisher(bus *cqrs.EventBus) *Publisher {
	if bus == nil {
		panic("missing event bus")
	}

	return &Publisher{bus: bus}
}

func (p *Publisher) PublishNotification(ctx context.Context, notification entities.TicketNotification) {
	p.publish(ctx, notification)
}

func (p *Publisher) PublishEmail(ctx context.Context, email entities.TicketEmail) {
	p.publish(ctx, email)
}

func (p *Publisher) publish(ctx context.Context, event entities.IEvent) {
	// the request context is usually gone before the broker answers
	ctx = context.WithoutCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if err := p.bus.Publish(ctx, event); err != nil {
			log.FromContext(ctx).
				WithError(err).
				WithField("topic", event.Topic()).
				Error("Could not publish message")
		}
	}()
}

// Wait blocks until every message handed to the publisher was sent or dropped.
func (p *Publisher) Wait() {
	p.wg.Wait()
}
