package command

import (
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/message"
	observability "github.com/eve-ticketing/tickets/trace"
	"github.com/jmoiron/sqlx"
)

// NewPublisher stores messages in postgres, so a queued compensation
// survives restarts of the service.
func NewPublisher(db *sqlx.DB, logger watermill.LoggerAdapter) (message.Publisher, error) {
	var publisher message.Publisher

	publisher, err := watermillSQL.NewPublisher(
		db,
		watermillSQL.PublisherConfig{
			SchemaAdapter:        watermillSQL.DefaultPostgreSQLSchema{},
			AutoInitializeSchema: true,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create compensation publisher: %w", err)
	}
	publisher = log.CorrelationPublisherDecorator{Publisher: publisher}
	publisher = observability.TracingPublisherDecorator{Publisher: publisher}

	return publisher, nil
}
