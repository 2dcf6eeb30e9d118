package command

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/eve-ticketing/tickets/entities"
	"github.com/sirupsen/logrus"
)

type SeatsService interface {
	Release(ctx context.Context, seatID int64, holder string) error
	ReleaseHeld(ctx context.Context, eventID int64, holder string) error
}

type StorageService interface {
	Delete(ctx context.Context, link string) error
}

type Handler struct {
	seats   SeatsService
	storage StorageService
}

func NewHandler(seats SeatsService, storage StorageService) Handler {
	if seats == nil {
		panic("missing seats service")
	}
	if storage == nil {
		panic("missing storage service")
	}

	return Handler{
		seats:   seats,
		storage: storage,
	}
}

func (h Handler) ReleaseSeat(ctx context.Context, cmd *entities.ReleaseSeat) error {
	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"event_id": cmd.EventID,
		"seat_id":  cmd.SeatID,
		"holder":   cmd.Holder,
	})

	var err error
	if cmd.SeatID == 0 {
		err = h.seats.ReleaseHeld(ctx, cmd.EventID, cmd.Holder)
	} else {
		err = h.seats.Release(ctx, cmd.SeatID, cmd.Holder)
	}
	if entities.IsNotFound(err) {
		logger.Warn("Seat to release does not exist anymore")
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("Seat released from compensation queue")
	return nil
}

func (h Handler) DiscardDocument(ctx context.Context, cmd *entities.DiscardDocument) error {
	if err := h.storage.Delete(ctx, cmd.Link); err != nil {
		return err
	}

	log.FromContext(ctx).WithField("link", cmd.Link).Info("Document discarded from compensation queue")
	return nil
}
