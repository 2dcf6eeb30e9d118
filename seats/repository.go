package seats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eve-ticketing/tickets/db"
	"github.com/eve-ticketing/tickets/entities"
	"github.com/jmoiron/sqlx"
)

const seatColumns = `id, event_id, sector, "row", number, occupied, holder`

type Repository struct {
	db *db.DB
}

func NewRepository(conn *db.DB) Repository {
	if conn == nil {
		panic("db is nil")
	}
	return Repository{db: conn}
}

func (r Repository) ByID(ctx context.Context, id int64) (entities.Seat, error) {
	var seat entities.Seat
	err := r.db.Conn.GetContext(ctx, &seat, `SELECT `+seatColumns+` FROM seats WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Seat{}, entities.NewNotFoundError("GET", "id", id, "seat not found")
	}
	if err != nil {
		return entities.Seat{}, fmt.Errorf("could not get seat %d: %w", id, err)
	}

	return seat, nil
}

// Claim occupies the first free seat of the event. Rows locked by a
// concurrent claim are skipped, so two callers never get the same seat.
func (r Repository) Claim(ctx context.Context, eventID int64, holder string) (entities.Seat, error) {
	var seat entities.Seat
	err := r.db.Conn.GetContext(ctx, &seat, `
		UPDATE seats SET occupied = TRUE, holder = $2
		WHERE id = (
			SELECT id FROM seats
			WHERE event_id = $1 AND occupied = FALSE
			ORDER BY id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+seatColumns, eventID, holder)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Seat{}, entities.NewConflictError("PUT", "event_id", eventID, "no seat available")
	}
	if err != nil {
		return entities.Seat{}, fmt.Errorf("could not claim seat of event %d: %w", eventID, err)
	}

	return seat, nil
}

// Occupy takes a specific seat. Occupying a seat the holder already owns is
// a no-op.
func (r Repository) Occupy(ctx context.Context, id int64, holder string) (entities.Seat, error) {
	var seat entities.Seat
	err := r.db.Conn.GetContext(ctx, &seat, `
		UPDATE seats SET occupied = TRUE, holder = $2
		WHERE id = $1 AND (occupied = FALSE OR holder = $2)
		RETURNING `+seatColumns, id, holder)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := r.ByID(ctx, id); err != nil {
			return entities.Seat{}, err
		}
		return entities.Seat{}, entities.NewConflictError("PUT", "id", id, "seat is already occupied")
	}
	if err != nil {
		return entities.Seat{}, fmt.Errorf("could not occupy seat %d: %w", id, err)
	}

	return seat, nil
}

// Release frees the seat only while holder still owns it. Releasing a seat
// that is free or held by someone else changes nothing. An empty holder
// frees the seat unconditionally.
func (r Repository) Release(ctx context.Context, id int64, holder string) (entities.Seat, error) {
	var seat entities.Seat
	err := r.db.Conn.GetContext(ctx, &seat, `
		UPDATE seats SET occupied = FALSE, holder = ''
		WHERE id = $1 AND occupied = TRUE AND ($2 = '' OR holder = $2)
		RETURNING `+seatColumns, id, holder)
	if errors.Is(err, sql.ErrNoRows) {
		return r.ByID(ctx, id)
	}
	if err != nil {
		return entities.Seat{}, fmt.Errorf("could not release seat %d: %w", id, err)
	}

	return seat, nil
}

// ReleaseHeld frees every seat of the event held by holder. It is used
// when a claim may have gone through but its response was lost, so the
// seat id is unknown.
func (r Repository) ReleaseHeld(ctx context.Context, eventID int64, holder string) ([]entities.Seat, error) {
	var released []entities.Seat
	err := r.db.Conn.SelectContext(ctx, &released, `
		UPDATE seats SET occupied = FALSE, holder = ''
		WHERE event_id = $1 AND holder = $2
		RETURNING `+seatColumns, eventID, holder)
	if err != nil {
		return nil, fmt.Errorf("could not release seats of event %d: %w", eventID, err)
	}

	return released, nil
}

func (r Repository) CountOccupied(ctx context.Context, eventID int64) (int, error) {
	var count int
	err := r.db.Conn.GetContext(ctx, &count, `SELECT COUNT(*) FROM seats WHERE event_id = $1 AND occupied = TRUE`, eventID)
	if err != nil {
		return 0, fmt.Errorf("could not count occupied seats of event %d: %w", eventID, err)
	}

	return count, nil
}

// WithEventLock runs fn while holding the advisory lock of the event, so
// work guarded by it runs one at a time across replicas.
func (r Repository) WithEventLock(ctx context.Context, eventID int64, fn func(ctx context.Context) error) error {
	return db.UpdateInTx(ctx, r.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, eventID); err != nil {
			return fmt.Errorf("could not lock event %d: %w", eventID, err)
		}
		return fn(ctx)
	})
}

// Add creates a seat unless the event already has capacity seats. Creates
// for the same event are serialized with an advisory lock.
func (r Repository) Add(ctx context.Context, create entities.SeatCreate, capacity int) (entities.Seat, error) {
	var seat entities.Seat

	err := db.UpdateInTx(ctx, r.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, create.EventID); err != nil {
			return fmt.Errorf("could not lock event %d: %w", create.EventID, err)
		}

		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM seats WHERE event_id = $1`, create.EventID); err != nil {
			return fmt.Errorf("could not count seats of event %d: %w", create.EventID, err)
		}
		if count >= capacity {
			return entities.NewValidationError("POST", "event_id", create.EventID, "event has no more seat capacity")
		}

		err := tx.GetContext(ctx, &seat, `
			INSERT INTO seats (event_id, sector, "row", number)
			VALUES ($1, $2, $3, $4)
			RETURNING `+seatColumns, create.EventID, create.Sector, create.Row, create.Number)
		if db.IsErrorUniqueViolation(err) {
			return entities.NewConflictError("POST", "number", create.Number, "seat already exists").WithCause(err)
		}
		if err != nil {
			return fmt.Errorf("could not save seat: %w", err)
		}

		return nil
	})
	if err != nil {
		return entities.Seat{}, err
	}

	return seat, nil
}
