package message_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	watermillMessage "github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/eve-ticketing/tickets/entities"
	"github.com/eve-ticketing/tickets/message"
	"github.com/eve-ticketing/tickets/message/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type release struct {
	EventID int64
	SeatID  int64
	Holder  string
}

type seatsServiceStub struct {
	releases chan release
	err      error
}

func (s seatsServiceStub) Release(ctx context.Context, seatID int64, holder string) error {
	if s.err != nil {
		return s.err
	}
	s.releases <- release{SeatID: seatID, Holder: holder}
	return nil
}

func (s seatsServiceStub) ReleaseHeld(ctx context.Context, eventID int64, holder string) error {
	if s.err != nil {
		return s.err
	}
	s.releases <- release{EventID: eventID, Holder: holder}
	return nil
}

type storageServiceStub struct {
	deleted chan string
	err     error
}

func (s storageServiceStub) Delete(ctx context.Context, link string) error {
	if s.err != nil {
		return s.err
	}
	s.deleted <- link
	return nil
}

func runRouter(t *testing.T, handler command.Handler) (*cqrs.CommandBus, *gochannel.GoChannel) {
	t.Helper()

	logger := watermill.NopLogger{}
	pubSub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, logger)

	processorConfig := cqrs.CommandProcessorConfig{
		GenerateSubscribeTopic: func(params cqrs.CommandProcessorGenerateSubscribeTopicParams) (string, error) {
			return command.Topic(params.CommandName), nil
		},
		SubscriberConstructor: func(params cqrs.CommandProcessorSubscriberConstructorParams) (watermillMessage.Subscriber, error) {
			return pubSub, nil
		},
		Marshaler: cqrs.JSONMarshaler{GenerateName: cqrs.StructName},
		Logger:    logger,
	}

	retry := middleware.Retry{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		Logger:          logger,
	}

	router := message.NewWatermillRouter(processorConfig, pubSub, handler, retry, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, router.Run(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = pubSub.Close()
	})

	<-router.Running()

	return command.NewCommandBus(pubSub), pubSub
}

func TestRouter_releases_queued_seat(t *testing.T) {
	seats := seatsServiceStub{releases: make(chan release, 1)}
	storage := storageServiceStub{deleted: make(chan string, 1)}

	bus, _ := runRouter(t, command.NewHandler(seats, storage))
	queue := command.NewQueue(bus)

	err := queue.ReleaseSeat(context.Background(), entities.ReleaseSeat{
		Header: entities.NewEventHeader(time.Now()),
		SeatID: 12,
		Holder: "code-1",
		Reason: "seat service unavailable",
	})
	require.NoError(t, err)

	select {
	case r := <-seats.releases:
		assert.Equal(t, release{SeatID: 12, Holder: "code-1"}, r)
	case <-time.After(5 * time.Second):
		t.Fatal("seat was not released")
	}
}

func TestRouter_releases_seats_of_holder_without_seat_id(t *testing.T) {
	seats := seatsServiceStub{releases: make(chan release, 1)}
	storage := storageServiceStub{deleted: make(chan string, 1)}

	bus, _ := runRouter(t, command.NewHandler(seats, storage))

	err := command.NewQueue(bus).ReleaseSeat(context.Background(), entities.ReleaseSeat{
		Header:  entities.NewEventHeader(time.Now()),
		EventID: 3,
		Holder:  "code-1",
		Reason:  "reserve timed out",
	})
	require.NoError(t, err)

	select {
	case r := <-seats.releases:
		assert.Equal(t, release{EventID: 3, Holder: "code-1"}, r)
	case <-time.After(5 * time.Second):
		t.Fatal("seats of holder were not released")
	}
}

func TestRouter_missing_seat_is_not_retried(t *testing.T) {
	seats := seatsServiceStub{
		releases: make(chan release, 1),
		err:      entities.NewNotFoundError("PUT", "id", 12, "seat not found"),
	}
	storage := storageServiceStub{deleted: make(chan string, 1)}

	bus, pubSub := runRouter(t, command.NewHandler(seats, storage))

	deadLetters, err := pubSub.Subscribe(context.Background(), command.DeadLetterTopic)
	require.NoError(t, err)

	require.NoError(t, command.NewQueue(bus).ReleaseSeat(context.Background(), entities.ReleaseSeat{SeatID: 12, Holder: "code-1"}))

	select {
	case msg := <-deadLetters:
		t.Fatalf("unexpected dead letter %s", msg.UUID)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRouter_dead_letters_failing_compensation(t *testing.T) {
	seats := seatsServiceStub{releases: make(chan release, 1)}
	storage := storageServiceStub{err: errors.New("storage unavailable")}

	bus, pubSub := runRouter(t, command.NewHandler(seats, storage))

	deadLetters, err := pubSub.Subscribe(context.Background(), command.DeadLetterTopic)
	require.NoError(t, err)

	err = command.NewQueue(bus).DiscardDocument(context.Background(), entities.DiscardDocument{
		Header: entities.NewEventHeader(time.Now()),
		Link:   "https://storage.test/ticket/1/ticket.pdf",
	})
	require.NoError(t, err)

	select {
	case msg := <-deadLetters:
		msg.Ack()
		assert.Equal(t, command.Topic("DiscardDocument"), msg.Metadata.Get(middleware.PoisonedTopicKey))
		assert.Contains(t, msg.Metadata.Get(middleware.ReasonForPoisonedKey), "storage unavailable")
		assert.Equal(t, "DiscardDocument", msg.Metadata.Get("name"))
	case <-time.After(5 * time.Second):
		t.Fatal("compensation was not dead lettered")
	}
}
