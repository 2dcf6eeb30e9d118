package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/eve-ticketing/tickets/db"
	"github.com/eve-ticketing/tickets/message/command"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const consumerGroup = "deadletter-cli"

func newHandler(c *cli.Context) (*Handler, func(), error) {
	conn, err := db.NewDBConn(c.String("postgres-url"))
	if err != nil {
		return nil, nil, err
	}

	logger := log.NewWatermill(log.FromContext(context.Background()))

	sub, err := command.NewSubscriber(conn.Conn, consumerGroup, logger)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	pub, err := command.NewPublisher(conn.Conn, logger)
	if err != nil {
		_ = sub.Close()
		_ = conn.Close()
		return nil, nil, err
	}

	closeFn := func() {
		_ = sub.Close()
		_ = conn.Close()
	}

	return NewHandler(sub, pub, c.Duration("timeout")), closeFn, nil
}

func main() {
	log.Init(logrus.WarnLevel)

	app := &cli.App{
		Name:  "deadletter",
		Usage: "Manage compensations that ended up in the dead letter queue",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "postgres-url",
				EnvVars:  []string{"POSTGRES_URL"},
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 10 * time.Second,
				Usage: "how long to wait for messages",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "preview",
				Usage: "preview messages",
				Action: func(c *cli.Context) error {
					h, closeFn, err := newHandler(c)
					if err != nil {
						return err
					}
					defer closeFn()

					messages, err := h.Preview(c.Context)
					if err != nil {
						return err
					}

					for _, m := range messages {
						fmt.Printf("%v\t%v\t%v\t%v\n", m.ID, m.Name, m.Topic, m.Reason)
					}

					return nil
				},
			},
			{
				Name:      "remove",
				ArgsUsage: "<message_id>",
				Usage:     "remove message",
				Action: func(c *cli.Context) error {
					h, closeFn, err := newHandler(c)
					if err != nil {
						return err
					}
					defer closeFn()

					return h.Remove(c.Context, c.Args().First())
				},
			},
			{
				Name:      "requeue",
				ArgsUsage: "<message_id>",
				Usage:     "send message back to its compensation topic",
				Action: func(c *cli.Context) error {
					h, closeFn, err := newHandler(c)
					if err != nil {
						return err
					}
					defer closeFn()

					return h.Requeue(c.Context, c.Args().First())
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.FromContext(context.Background()).WithError(err).Fatal("Command failed")
	}
}
