package seats

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/eve-ticketing/tickets/entities"
	"github.com/eve-ticketing/tickets/metrics"
	"github.com/sirupsen/logrus"
)

type SeatRepository interface {
	ByID(ctx context.Context, id int64) (entities.Seat, error)
	Claim(ctx context.Context, eventID int64, holder string) (entities.Seat, error)
	Occupy(ctx context.Context, id int64, holder string) (entities.Seat, error)
	Release(ctx context.Context, id int64, holder string) (entities.Seat, error)
	ReleaseHeld(ctx context.Context, eventID int64, holder string) ([]entities.Seat, error)
	CountOccupied(ctx context.Context, eventID int64) (int, error)
	Add(ctx context.Context, create entities.SeatCreate, capacity int) (entities.Seat, error)
	WithEventLock(ctx context.Context, eventID int64, fn func(ctx context.Context) error) error
}

type EventsService interface {
	Get(ctx context.Context, id int64) (entities.Event, error)
	SetSoldOut(ctx context.Context, id int64, soldOut bool) error
}

// Service owns seat occupancy and keeps the sold-out flag of the event in
// line with it.
type Service struct {
	repo   SeatRepository
	events EventsService
}

func NewService(repo SeatRepository, events EventsService) Service {
	if repo == nil {
		panic("missing seat repository")
	}
	if events == nil {
		panic("missing events service")
	}

	return Service{
		repo:   repo,
		events: events,
	}
}

func (s Service) Get(ctx context.Context, id int64) (entities.Seat, error) {
	return s.repo.ByID(ctx, id)
}

func (s Service) Create(ctx context.Context, create entities.SeatCreate) (entities.Seat, error) {
	event, err := s.events.Get(ctx, create.EventID)
	if err != nil {
		return entities.Seat{}, err
	}
	if event.IsWithoutSeats {
		return entities.Seat{}, entities.NewValidationError("POST", "event_id", create.EventID, "event has no seats")
	}

	return s.repo.Add(ctx, create, event.MaxTicketAmount)
}

// Update applies a seat transition: a claim of any free seat of an event
// (Reserve with EventID), occupying or releasing one seat (ID with
// Occupied), or releasing every seat a holder has in an event (EventID with
// Occupied false). Only the release of one seat works without a holder and
// then frees the seat whoever holds it.
func (s Service) Update(ctx context.Context, update entities.SeatUpdate) (entities.Seat, error) {
	const method = "PUT"

	var (
		operation string
		seat      entities.Seat
		err       error
	)
	switch {
	case update.Reserve && update.EventID != nil:
		operation = "reserve"
		if err := requireHolder(update); err != nil {
			return entities.Seat{}, err
		}
		seat, err = s.repo.Claim(ctx, *update.EventID, update.Holder)
	case update.ID != nil && update.Occupied != nil && *update.Occupied:
		operation = "occupy"
		if err := requireHolder(update); err != nil {
			return entities.Seat{}, err
		}
		seat, err = s.repo.Occupy(ctx, *update.ID, update.Holder)
	case update.ID != nil && update.Occupied != nil:
		operation = "release"
		seat, err = s.repo.Release(ctx, *update.ID, update.Holder)
		if err == nil && update.Holder == "" {
			log.FromContext(ctx).WithField("seat_id", seat.ID).Info("Seat released without holder check")
		}
	case update.EventID != nil && update.Occupied != nil && !*update.Occupied && !update.Reserve:
		operation = "release_held"
		if err := requireHolder(update); err != nil {
			return entities.Seat{}, err
		}
		seat, err = s.releaseHeld(ctx, *update.EventID, update.Holder)
	default:
		return entities.Seat{}, entities.NewValidationError(method, "id", update.ID, "either event_id with reserve or occupied, or id with occupied is required")
	}

	metrics.TrackSeatClaim(operation, claimStatus(err))
	if err != nil {
		return entities.Seat{}, err
	}

	s.syncSoldOut(ctx, seat.EventID)

	return seat, nil
}

func (s Service) releaseHeld(ctx context.Context, eventID int64, holder string) (entities.Seat, error) {
	released, err := s.repo.ReleaseHeld(ctx, eventID, holder)
	if err != nil {
		return entities.Seat{}, err
	}
	if len(released) == 0 {
		return entities.Seat{EventID: eventID}, nil
	}

	log.FromContext(ctx).WithFields(logrus.Fields{
		"event_id": eventID,
		"released": len(released),
	}).Info("Released seats of holder")

	return released[0], nil
}

func requireHolder(update entities.SeatUpdate) error {
	if update.Holder == "" {
		return entities.NewValidationError("PUT", "holder", update.Holder, "holder is required")
	}
	return nil
}

// syncSoldOut recounts occupancy and corrects the event flag. Syncs of one
// event run under its lock, so the last one always sees every committed
// transition. The transition itself is already committed: a failure is only
// logged and fixed by the next transition of the event.
func (s Service) syncSoldOut(ctx context.Context, eventID int64) {
	logger := log.FromContext(ctx).WithField("event_id", eventID)

	err := s.repo.WithEventLock(ctx, eventID, func(ctx context.Context) error {
		occupied, err := s.repo.CountOccupied(ctx, eventID)
		if err != nil {
			return err
		}

		event, err := s.events.Get(ctx, eventID)
		if err != nil {
			return err
		}

		soldOut := occupied >= event.MaxTicketAmount
		if soldOut == event.IsSoldOut {
			return nil
		}

		if err := s.events.SetSoldOut(ctx, eventID, soldOut); err != nil {
			return err
		}

		logger.WithFields(logrus.Fields{
			"occupied": occupied,
			"sold_out": soldOut,
		}).Info("Event sold out flag synced")
		return nil
	})
	if err != nil {
		logger.WithError(err).Error("Could not sync sold out flag")
	}
}

func claimStatus(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case entities.IsConflict(err):
		return "conflict"
	default:
		return metrics.ResultFailed
	}
}
