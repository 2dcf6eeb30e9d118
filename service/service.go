package service

import (
	"context"
	"errors"
	"fmt"
	stdHttp "net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	watermillMessage "github.com/ThreeDotsLabs/watermill/message"
	"github.com/eve-ticketing/tickets/config"
	"github.com/eve-ticketing/tickets/db"
	"github.com/eve-ticketing/tickets/events"
	ticketsHttp "github.com/eve-ticketing/tickets/http"
	"github.com/eve-ticketing/tickets/message"
	"github.com/eve-ticketing/tickets/message/command"
	"github.com/eve-ticketing/tickets/message/event"
	"github.com/eve-ticketing/tickets/scheduler"
	"github.com/eve-ticketing/tickets/seats"
	"github.com/eve-ticketing/tickets/tickets"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const ServiceName = "tickets"

func init() {
	log.Init(logrus.InfoLevel)
}

type Service struct {
	httpAddr string

	echoRouter *echo.Echo

	// set only when the tickets module runs
	watermillRouter *watermillMessage.Router
	expiry          *scheduler.ExpiryScheduler
	publisher       *event.Publisher
}

func New(
	cfg config.Config,
	conn db.DB,
	redisClient *redis.Client,
	clients Clients,
	clock clockwork.Clock,
) (Service, error) {
	ctx := context.Background()
	watermillLogger := log.NewWatermill(log.FromContext(ctx))

	echoRouter := ticketsHttp.NewHttpRouter(ServiceName)
	apiGroup := echoRouter.Group(ticketsHttp.APIPrefix)

	s := Service{
		httpAddr:   cfg.HTTPAddr,
		echoRouter: echoRouter,
	}

	if cfg.Runs(config.ModuleEvents) {
		if err := events.InitializeSchema(ctx, conn.Conn); err != nil {
			return Service{}, err
		}
		events.RegisterRoutes(apiGroup, events.NewRepository(&conn))
	}

	if cfg.Runs(config.ModuleSeats) {
		if err := seats.InitializeSchema(ctx, conn.Conn); err != nil {
			return Service{}, err
		}
		seats.RegisterRoutes(apiGroup, seats.NewService(seats.NewRepository(&conn), clients.Events))
	}

	if !cfg.Runs(config.ModuleTickets) {
		return s, nil
	}

	if err := conn.MigrateSchema(ctx); err != nil {
		return Service{}, err
	}

	redisPublisher := message.NewRedisPublisher(redisClient, watermillLogger)
	s.publisher = event.NewPublisher(event.NewBus(redisPublisher))

	commandPublisher, err := command.NewPublisher(conn.Conn, watermillLogger)
	if err != nil {
		return Service{}, err
	}
	compensations := command.NewQueue(command.NewCommandBus(commandPublisher))

	ticketRepo := db.NewTicketRepo(&conn)
	orchestrator := tickets.NewOrchestrator(
		ticketRepo,
		tickets.NewEventGuard(clients.Events, clock),
		tickets.NewSeatAllocator(clients.Seats),
		tickets.NewDocumentIssuer(clients.Pdf, clients.Storage),
		s.publisher,
		s.publisher,
		compensations,
		clients.Auth,
		clock,
		tickets.Config{
			AdminEmails:   cfg.AdminEmails,
			PaymentWindow: cfg.PaymentWindow,
		},
	)

	s.watermillRouter = message.NewWatermillRouter(
		command.NewProcessorConfig(conn.Conn, watermillLogger),
		commandPublisher,
		command.NewHandler(clients.Seats, clients.Storage),
		message.DefaultRetry(watermillLogger),
		watermillLogger,
	)

	s.expiry, err = scheduler.NewExpiryScheduler(ticketRepo, orchestrator, clock, scheduler.Config{
		Interval: cfg.ExpirySweepInterval,
		Locker:   scheduler.NewRedisLocker(redisClient, cfg.ExpirySweepInterval),
	})
	if err != nil {
		return Service{}, fmt.Errorf("could not create expiry scheduler: %w", err)
	}

	ticketsHttp.RegisterTicketRoutes(apiGroup, orchestrator, clients.Auth)

	return s, nil
}

func (s Service) Run(
	ctx context.Context,
) error {
	errgrp, ctx := errgroup.WithContext(ctx)

	if s.watermillRouter != nil {
		errgrp.Go(func() error {
			return s.watermillRouter.Run(ctx)
		})
	}

	if s.expiry != nil {
		errgrp.Go(func() error {
			return s.expiry.Run(ctx)
		})
	}

	errgrp.Go(func() error {
		// we don't want to start HTTP server before Watermill router (so service won't be healthy before it's ready)
		if s.watermillRouter != nil {
			select {
			case <-s.watermillRouter.Running():
			case <-ctx.Done():
				return nil
			}
		}

		err := s.echoRouter.Start(s.httpAddr)
		if err != nil && !errors.Is(err, stdHttp.ErrServerClosed) {
			return err
		}

		return nil
	})

	errgrp.Go(func() error {
		<-ctx.Done()
		return s.echoRouter.Shutdown(context.Background())
	})

	err := errgrp.Wait()

	if s.publisher != nil {
		s.publisher.Wait()
	}

	return err
}
