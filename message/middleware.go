package message

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/eve-ticketing/tickets/message/command"
	"github.com/eve-ticketing/tickets/metrics"
	observability "github.com/eve-ticketing/tickets/trace"
	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"
)

func DefaultRetry(watermillLogger watermill.LoggerAdapter) middleware.Retry {
	return middleware.Retry{
		MaxRetries:      10,
		InitialInterval: time.Millisecond * 100,
		MaxInterval:     time.Second,
		Multiplier:      2,
		Logger:          watermillLogger,
	}
}

func useMiddlewares(
	router *message.Router,
	deadLetterPublisher message.Publisher,
	retry middleware.Retry,
) error {
	router.AddMiddleware(func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) (events []*message.Message, err error) {
			ctx := msg.Context()

			reqCorrelationID := msg.Metadata.Get("correlation_id")
			if reqCorrelationID == "" {
				reqCorrelationID = shortuuid.New()
			}

			ctx = log.ToContext(ctx, logrus.WithFields(logrus.Fields{"correlation_id": reqCorrelationID}))
			ctx = log.ContextWithCorrelationID(ctx, reqCorrelationID)

			msg.SetContext(ctx)

			return h(msg)
		}
	})

	router.AddMiddleware(observability.TracingMiddleware)

	poisonQueue, err := middleware.PoisonQueue(
		deadLetterDecorator{Publisher: deadLetterPublisher},
		command.DeadLetterTopic,
	)
	if err != nil {
		return fmt.Errorf("could not create poison queue: %w", err)
	}
	router.AddMiddleware(poisonQueue)

	router.AddMiddleware(retry.Middleware)

	router.AddMiddleware(middleware.Recoverer)

	router.AddMiddleware(func(next message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			logger := log.FromContext(msg.Context()).WithFields(logrus.Fields{
				"message_id": msg.UUID,
				"payload":    string(msg.Payload),
				"metadata":   msg.Metadata,
			})

			logger.Info("Handling a message")

			msgs, err := next(msg)
			if err != nil {
				logger.WithError(err).Error("Error while handling a message")
			}

			return msgs, err
		}
	})

	return nil
}

// deadLetterDecorator reports every message that gives up on retries.
type deadLetterDecorator struct {
	message.Publisher
}

func (d deadLetterDecorator) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		name := cqrs.JSONMarshaler{}.NameFromMessage(msg)

		log.FromContext(msg.Context()).WithFields(logrus.Fields{
			"message_id": msg.UUID,
			"command":    name,
			"topic":      msg.Metadata.Get(middleware.PoisonedTopicKey),
			"reason":     msg.Metadata.Get(middleware.ReasonForPoisonedKey),
		}).Error("Compensation moved to dead letter queue")

		metrics.TrackDeadLetter(name)
	}

	return d.Publisher.Publish(topic, messages...)
}
