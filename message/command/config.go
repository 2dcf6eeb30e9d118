package command

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
)

const (
	topicPrefix = "compensations."

	// DeadLetterTopic receives compensations that kept failing after retries.
	DeadLetterTopic = topicPrefix + "dead_letter"
)

var marshaler = cqrs.JSONMarshaler{
	GenerateName: cqrs.StructName,
}

func Topic(commandName string) string {
	return topicPrefix + commandName
}

// NewSubscriber reads a compensation topic from postgres. Every consumer
// group keeps its own offset.
func NewSubscriber(db *sqlx.DB, consumerGroup string, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return sql.NewSubscriber(
		db,
		sql.SubscriberConfig{
			ConsumerGroup:    consumerGroup,
			SchemaAdapter:    sql.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   sql.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
		},
		logger,
	)
}

func NewProcessorConfig(db *sqlx.DB, watermillLogger watermill.LoggerAdapter) cqrs.CommandProcessorConfig {
	return cqrs.CommandProcessorConfig{
		GenerateSubscribeTopic: func(params cqrs.CommandProcessorGenerateSubscribeTopicParams) (string, error) {
			return Topic(params.CommandName), nil
		},
		SubscriberConstructor: func(params cqrs.CommandProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return NewSubscriber(db, "svc-tickets.compensations."+params.HandlerName, watermillLogger)
		},
		Marshaler: marshaler,
		Logger:    watermillLogger,
	}
}
