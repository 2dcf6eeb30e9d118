package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/eve-ticketing/tickets/message/command"
)

var ErrMessageNotFound = errors.New("message not found")

type Message struct {
	ID     string
	Topic  string
	Name   string
	Reason string
}

// Handler works on the dead letter topic. Messages that are looked at but
// not taken are published back, so the queue keeps its order.
type Handler struct {
	subscriber message.Subscriber
	publisher  message.Publisher

	// timeout bounds every walk over the queue, an empty queue just waits
	// for it to pass
	timeout time.Duration
}

func NewHandler(subscriber message.Subscriber, publisher message.Publisher, timeout time.Duration) *Handler {
	return &Handler{
		subscriber: subscriber,
		publisher:  publisher,
		timeout:    timeout,
	}
}

func (h *Handler) Preview(ctx context.Context) ([]Message, error) {
	var messages []Message

	err := h.walk(ctx, func(msg *message.Message) (bool, error) {
		messages = append(messages, Message{
			ID:     msg.UUID,
			Topic:  msg.Metadata.Get(middleware.PoisonedTopicKey),
			Name:   msg.Metadata.Get("name"),
			Reason: msg.Metadata.Get(middleware.ReasonForPoisonedKey),
		})
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return messages, nil
}

func (h *Handler) Remove(ctx context.Context, messageID string) error {
	return h.take(ctx, messageID, func(msg *message.Message) error {
		return nil
	})
}

// Requeue sends the message back to the topic it was poisoned on.
func (h *Handler) Requeue(ctx context.Context, messageID string) error {
	return h.take(ctx, messageID, func(msg *message.Message) error {
		topic := msg.Metadata.Get(middleware.PoisonedTopicKey)
		if topic == "" {
			return fmt.Errorf("message %s has no %s metadata", msg.UUID, middleware.PoisonedTopicKey)
		}

		requeued := msg.Copy()
		for _, key := range []string{
			middleware.PoisonedTopicKey,
			middleware.PoisonedHandlerKey,
			middleware.PoisonedSubscriberKey,
			middleware.ReasonForPoisonedKey,
		} {
			delete(requeued.Metadata, key)
		}

		return h.publisher.Publish(topic, requeued)
	})
}

func (h *Handler) take(ctx context.Context, messageID string, fn func(msg *message.Message) error) error {
	found := false

	err := h.walk(ctx, func(msg *message.Message) (bool, error) {
		if msg.UUID != messageID {
			return false, nil
		}
		if err := fn(msg); err != nil {
			return false, err
		}
		found = true
		return true, nil
	})
	if err != nil {
		return err
	}

	if !found {
		return ErrMessageNotFound
	}
	return nil
}

// walk passes every dead lettered message to fn once. When fn takes the
// message the walk stops, otherwise the message goes back to the end of the
// queue. Seeing the first kept message again means the queue went full
// circle.
func (h *Handler) walk(ctx context.Context, fn func(msg *message.Message) (taken bool, err error)) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	messages, err := h.subscriber.Subscribe(ctx, command.DeadLetterTopic)
	if err != nil {
		return fmt.Errorf("could not subscribe to %s: %w", command.DeadLetterTopic, err)
	}

	first := ""
	for {
		var msg *message.Message
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-messages:
			if !ok {
				return nil
			}
			msg = m
		}

		if msg.UUID == first {
			msg.Nack()
			return nil
		}

		taken, err := fn(msg)
		if err != nil {
			msg.Nack()
			return err
		}
		if taken {
			msg.Ack()
			return nil
		}

		if first == "" {
			first = msg.UUID
		}
		if err := h.publisher.Publish(command.DeadLetterTopic, msg.Copy()); err != nil {
			msg.Nack()
			return fmt.Errorf("could not publish message %s back: %w", msg.UUID, err)
		}
		msg.Ack()
	}
}
