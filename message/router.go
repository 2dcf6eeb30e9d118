package message

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/eve-ticketing/tickets/message/command"
)

// NewWatermillRouter consumes the compensation queue. Commands still failing
// after retry go to command.DeadLetterTopic on deadLetterPublisher.
func NewWatermillRouter(
	commandProcessorConfig cqrs.CommandProcessorConfig,
	deadLetterPublisher message.Publisher,
	commandHandler command.Handler,
	retry middleware.Retry,
	watermillLogger watermill.LoggerAdapter,
) *message.Router {
	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		panic(err)
	}

	if err := useMiddlewares(router, deadLetterPublisher, retry); err != nil {
		panic(err)
	}

	cmdProcessor, err := cqrs.NewCommandProcessorWithConfig(router, commandProcessorConfig)
	if err != nil {
		panic(err)
	}

	err = cmdProcessor.AddHandlers(
		cqrs.NewCommandHandler(
			"ReleaseSeat",
			commandHandler.ReleaseSeat,
		),
		cqrs.NewCommandHandler(
			"DiscardDocument",
			commandHandler.DiscardDocument,
		),
	)
	if err != nil {
		panic(err)
	}

	return router
}
