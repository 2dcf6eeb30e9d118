package message

import (
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/eve-ticketing/tickets/entities"
	observability "github.com/eve-ticketing/tickets/trace"
	"github.com/redis/go-redis/v9"
)

// streamMaxLen trims the notification and email streams, their consumers
// live in other services and may be gone for a while.
const streamMaxLen = 100_000

// NewRedisPublisher publishes notifications and emails.
func NewRedisPublisher(rdb *redis.Client, watermillLogger watermill.LoggerAdapter) message.Publisher {
	var pub message.Publisher
	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
		Maxlens: map[string]int64{
			entities.NotificationTopic: streamMaxLen,
			entities.EmailTopic:        streamMaxLen,
		},
	}, watermillLogger)
	if err != nil {
		panic(err)
	}
	pub = log.CorrelationPublisherDecorator{Publisher: pub}

	return observability.TracingPublisherDecorator{Publisher: pub}
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}
