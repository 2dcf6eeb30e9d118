package tickets

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/eve-ticketing/tickets/db"
	"github.com/eve-ticketing/tickets/entities"
	"github.com/eve-ticketing/tickets/saga"
	"github.com/jonboulle/clockwork"
)

type TicketRepository interface {
	Add(ctx context.Context, ticket entities.Ticket) (entities.Ticket, error)
	ByID(ctx context.Context, id int64) (entities.Ticket, error)
	ByIDs(ctx context.Context, ids []int64) ([]entities.Ticket, error)
	// Update stores ticket unless the row no longer matches previous.
	Update(ctx context.Context, previous, ticket entities.Ticket) error
	Delete(ctx context.Context, id int64, cond db.DeleteCondition) (entities.Ticket, error)
	PayForTickets(
		ctx context.Context,
		ids []int64,
		updateFn func(tickets []entities.Ticket) ([]entities.Ticket, error),
	) ([]entities.Ticket, error)
	FindExpired(ctx context.Context, cutoff time.Time) ([]entities.Ticket, error)
	List(
		ctx context.Context,
		filter entities.TicketFilter,
		sort entities.TicketSort,
		page entities.PageRequest,
	) ([]entities.Ticket, int, error)
}

// NotificationPublisher and EmailPublisher never block the caller and never
// fail it. Delivery problems are logged by the implementation.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, notification entities.TicketNotification)
}

type EmailPublisher interface {
	PublishEmail(ctx context.Context, email entities.TicketEmail)
}

// CompensationQueue durably stores compensations that could not be done in
// place.
type CompensationQueue interface {
	ReleaseSeat(ctx context.Context, cmd entities.ReleaseSeat) error
	DiscardDocument(ctx context.Context, cmd entities.DiscardDocument) error
}

// UserDirectory finds the owner of a ticket when the caller is someone else.
type UserDirectory interface {
	User(ctx context.Context, id int64) (entities.User, error)
}

type Config struct {
	AdminEmails   []string
	PaymentWindow time.Duration
}

type Orchestrator struct {
	repo          TicketRepository
	guard         EventGuard
	seats         SeatAllocator
	documents     DocumentIssuer
	notifications NotificationPublisher
	emails        EmailPublisher
	compensations CompensationQueue
	users         UserDirectory
	clock         clockwork.Clock
	config        Config
	sagaOpts      []saga.Option
}

func NewOrchestrator(
	repo TicketRepository,
	guard EventGuard,
	seats SeatAllocator,
	documents DocumentIssuer,
	notifications NotificationPublisher,
	emails EmailPublisher,
	compensations CompensationQueue,
	users UserDirectory,
	clock clockwork.Clock,
	config Config,
	sagaOpts ...saga.Option,
) *Orchestrator {
	if repo == nil {
		panic("missing ticket repository")
	}
	if notifications == nil {
		panic("missing notification publisher")
	}
	if emails == nil {
		panic("missing email publisher")
	}
	if compensations == nil {
		panic("missing compensation queue")
	}
	if users == nil {
		panic("missing user directory")
	}
	if clock == nil {
		panic("missing clock")
	}
	if config.PaymentWindow <= 0 {
		panic("payment window must be positive")
	}

	return &Orchestrator{
		repo:          repo,
		guard:         guard,
		seats:         seats,
		documents:     documents,
		notifications: notifications,
		emails:        emails,
		compensations: compensations,
		users:         users,
		clock:         clock,
		config:        config,
		sagaOpts:      sagaOpts,
	}
}

func (o *Orchestrator) PaymentWindow() time.Duration {
	return o.config.PaymentWindow
}

func (o *Orchestrator) authorize(method string, ticket entities.Ticket, user entities.User) error {
	if !user.CanAccess(ticket, o.config.AdminEmails) {
		return entities.NewValidationError(method, "id", ticket.ID, "you do not have access to this ticket")
	}
	return nil
}

// owner returns the user the ticket belongs to. Ticket documents and emails
// are addressed to the owner even when an admin acts on the ticket. An owner
// unknown to the directory gets documents without personal data and no
// email.
func (o *Orchestrator) owner(ctx context.Context, ticket entities.Ticket, caller entities.User) (entities.User, error) {
	if caller.ID == ticket.UserID {
		return caller, nil
	}

	user, err := o.users.User(ctx, ticket.UserID)
	if entities.IsNotFound(err) {
		log.FromContext(ctx).WithField("user_id", ticket.UserID).Warn("Ticket owner not found")
		return entities.User{ID: ticket.UserID}, nil
	}
	if err != nil {
		return entities.User{}, err
	}
	return user, nil
}

// seatRelease returns the release of a seat held by holder and its
// escalation onto the compensation queue. While seatID is still 0 every
// seat of the event held by holder is released instead.
func (o *Orchestrator) seatRelease(eventID int64, seatID func() int64, holder string) (
	func(ctx context.Context) error,
	func(ctx context.Context, cause error) error,
) {
	release := func(ctx context.Context) error {
		if id := seatID(); id != 0 {
			return o.seats.Release(ctx, id, holder)
		}
		return o.seats.ReleaseHeld(ctx, eventID, holder)
	}
	escalate := func(ctx context.Context, cause error) error {
		return o.compensations.ReleaseSeat(ctx, entities.ReleaseSeat{
			Header:  entities.NewEventHeader(o.clock.Now()),
			EventID: eventID,
			SeatID:  seatID(),
			Holder:  holder,
			Reason:  cause.Error(),
		})
	}
	return release, escalate
}

// mayHaveApplied reports whether a failed remote call could still have
// changed something, e.g. a timeout or a lost response.
func mayHaveApplied(err error) bool {
	switch entities.KindOf(err) {
	case entities.KindValidation, entities.KindNotFound, entities.KindConflict:
		return false
	default:
		return true
	}
}

// documentsDiscard is seatRelease for stored documents. Empty links are
// skipped.
func (o *Orchestrator) documentsDiscard(links func() []string) (
	func(ctx context.Context) error,
	func(ctx context.Context, cause error) error,
) {
	discard := func(ctx context.Context) error {
		for _, link := range links() {
			if err := o.documents.Discard(ctx, link); err != nil {
				return err
			}
		}
		return nil
	}
	escalate := func(ctx context.Context, cause error) error {
		for _, link := range links() {
			if link == "" {
				continue
			}
			err := o.compensations.DiscardDocument(ctx, entities.DiscardDocument{
				Header: entities.NewEventHeader(o.clock.Now()),
				Link:   link,
				Reason: cause.Error(),
			})
			if err != nil {
				return err
			}
		}
		return nil
	}
	return discard, escalate
}
