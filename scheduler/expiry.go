package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/eve-ticketing/tickets/entities"
	"github.com/eve-ticketing/tickets/metrics"
	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"
)

const expiryJobName = "expire-unpaid-tickets"

type TicketRepository interface {
	FindExpired(ctx context.Context, cutoff time.Time) ([]entities.Ticket, error)
}

type TicketExpirer interface {
	ExpireTicket(ctx context.Context, id int64, cutoff time.Time) error
	PaymentWindow() time.Duration
}

type Config struct {
	Interval time.Duration
	// Locker is optional. Without it every replica sweeps on its own.
	Locker gocron.Locker
}

// ExpiryScheduler periodically cancels tickets left unpaid for longer than
// the payment window.
type ExpiryScheduler struct {
	scheduler gocron.Scheduler
	repo      TicketRepository
	expirer   TicketExpirer
	clock     clockwork.Clock
}

func NewExpiryScheduler(
	repo TicketRepository,
	expirer TicketExpirer,
	clock clockwork.Clock,
	config Config,
) (*ExpiryScheduler, error) {
	if repo == nil {
		panic("missing ticket repository")
	}
	if expirer == nil {
		panic("missing ticket expirer")
	}
	if clock == nil {
		panic("missing clock")
	}

	opts := []gocron.SchedulerOption{
		gocron.WithClock(clock),
		gocron.WithLogger(newLogger(log.FromContext(context.Background()))),
	}
	if config.Locker != nil {
		opts = append(opts, gocron.WithDistributedLocker(config.Locker))
	}

	scheduler, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create scheduler: %w", err)
	}

	s := &ExpiryScheduler{
		scheduler: scheduler,
		repo:      repo,
		expirer:   expirer,
		clock:     clock,
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(config.Interval),
		gocron.NewTask(s.runSweep),
		gocron.WithName(expiryJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("could not schedule %s: %w", expiryJobName, err)
	}

	return s, nil
}

// Run sweeps until ctx is done.
func (s *ExpiryScheduler) Run(ctx context.Context) error {
	s.scheduler.Start()

	<-ctx.Done()

	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("could not stop scheduler: %w", err)
	}
	return nil
}

func (s *ExpiryScheduler) runSweep() {
	correlationID := "sweep-" + shortuuid.New()

	ctx := log.ContextWithCorrelationID(context.Background(), correlationID)
	ctx = log.ToContext(ctx, logrus.WithFields(logrus.Fields{
		"correlation_id": correlationID,
		"job":            expiryJobName,
	}))

	if _, err := s.Sweep(ctx); err != nil {
		log.FromContext(ctx).WithError(err).Error("Expiry sweep failed")
	}
}

// Sweep expires every ticket unpaid since now minus the payment window and
// returns how many it canceled. A ticket that fails to expire is logged and
// retried on the next sweep.
func (s *ExpiryScheduler) Sweep(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.expirer.PaymentWindow())
	logger := log.FromContext(ctx).WithField("cutoff", cutoff)

	tickets, err := s.repo.FindExpired(ctx, cutoff)
	if err != nil {
		metrics.TrackExpirySweep(metrics.ResultFailed, 0)
		return 0, err
	}

	expired, failed := 0, 0
	for _, ticket := range tickets {
		err := s.expirer.ExpireTicket(ctx, ticket.ID, cutoff)
		switch {
		case err == nil:
			expired++
		case entities.IsNotFound(err):
			// paid or canceled since FindExpired
			logger.WithField("ticket_id", ticket.ID).Debug("Ticket no longer expirable")
		default:
			failed++
			logger.WithError(err).WithField("ticket_id", ticket.ID).Error("Could not expire ticket")
		}
	}

	result := metrics.ResultOK
	if failed > 0 {
		result = metrics.ResultFailed
	}
	metrics.TrackExpirySweep(result, expired)

	if expired > 0 || failed > 0 {
		logger.WithFields(logrus.Fields{
			"expired": expired,
			"failed":  failed,
		}).Info("Expiry sweep finished")
	}

	return expired, nil
}
