package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/eve-ticketing/tickets/config"
	"github.com/eve-ticketing/tickets/db"
	"github.com/eve-ticketing/tickets/message"
	"github.com/eve-ticketing/tickets/service"
	observability "github.com/eve-ticketing/tickets/trace"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := log.FromContext(ctx)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Could not load configuration")
	}

	traceProvider, err := observability.ConfigureTraceProvider(service.ServiceName, cfg.JaegerEndpoint)
	if err != nil {
		logger.WithError(err).Fatal("Could not configure tracing")
	}
	defer func() {
		if err := traceProvider.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Could not shut down trace provider")
		}
	}()

	conn, err := db.NewDBConn(cfg.PostgresURL)
	if err != nil {
		logger.WithError(err).Fatal("Could not connect to database")
	}
	defer conn.Close()

	redisClient := message.NewRedisClient(cfg.RedisAddr)
	defer redisClient.Close()

	svc, err := service.New(
		cfg,
		conn,
		redisClient,
		service.NewClients(cfg),
		clockwork.NewRealClock(),
	)
	if err != nil {
		logger.WithError(err).Fatal("Could not create service")
	}

	logger.WithFields(logrus.Fields{
		"addr":    cfg.HTTPAddr,
		"modules": cfg.Services,
	}).Info("Starting service")

	if err := svc.Run(ctx); err != nil {
		logger.WithError(err).Error("Service stopped with error")
		os.Exit(1)
	}
}
