package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eve-ticketing/tickets/db"
	"github.com/eve-ticketing/tickets/entities"
)

const eventColumns = `id, name, description, max_ticket_amount, is_sold_out, unit_price, currency, children_discount, students_discount, start_at, end_at, country, address, localization_name, is_without_seats`

type Repository struct {
	db *db.DB
}

func NewRepository(conn *db.DB) Repository {
	if conn == nil {
		panic("db is nil")
	}
	return Repository{db: conn}
}

func (r Repository) ByID(ctx context.Context, id int64) (entities.Event, error) {
	var event entities.Event
	err := r.db.Conn.GetContext(ctx, &event, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Event{}, entities.NewNotFoundError("GET", "id", id, "event not found")
	}
	if err != nil {
		return entities.Event{}, fmt.Errorf("could not get event %d: %w", id, err)
	}

	return event, nil
}

// Update applies the set fields of patch and returns the stored event.
func (r Repository) Update(ctx context.Context, patch entities.EventPatch) (entities.Event, error) {
	var soldOut sql.NullBool
	if patch.IsSoldOut != nil {
		soldOut = sql.NullBool{Bool: *patch.IsSoldOut, Valid: true}
	}

	var event entities.Event
	err := r.db.Conn.GetContext(ctx, &event, `
		UPDATE events SET is_sold_out = COALESCE($2, is_sold_out)
		WHERE id = $1
		RETURNING `+eventColumns, patch.ID, soldOut)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Event{}, entities.NewNotFoundError("PUT", "id", patch.ID, "event not found")
	}
	if err != nil {
		return entities.Event{}, fmt.Errorf("could not update event %d: %w", patch.ID, err)
	}

	return event, nil
}
