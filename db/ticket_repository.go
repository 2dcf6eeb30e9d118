package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eve-ticketing/tickets/entities"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const ticketColumns = `id, code, created_at, firstname, lastname, phone_number, cost, is_adult, is_student, event_id, seat_id, user_id, paid, pdf`

type TicketRepository struct {
	db *DB
}

func NewTicketRepo(db *DB) TicketRepository {
	if db == nil {
		panic("db is nil")
	}
	return TicketRepository{
		db: db,
	}
}

func (tr TicketRepository) Add(ctx context.Context, ticket entities.Ticket) (entities.Ticket, error) {
	rows, err := tr.db.Conn.NamedQueryContext(
		ctx,
		`
		INSERT INTO
			tickets (code, created_at, firstname, lastname, phone_number, cost, is_adult, is_student, event_id, seat_id, user_id, paid, pdf)
		VALUES
			(:code, :created_at, :firstname, :lastname, :phone_number, :cost, :is_adult, :is_student, :event_id, :seat_id, :user_id, :paid, :pdf)
		RETURNING id`,
		ticket,
	)
	if err != nil {
		if IsErrorUniqueViolation(err) {
			return entities.Ticket{}, entities.NewConflictError("POST", "code", ticket.Code, "ticket code already exists").WithCause(err)
		}
		return entities.Ticket{}, fmt.Errorf("could not save ticket: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return entities.Ticket{}, fmt.Errorf("could not save ticket: no id returned")
	}
	if err := rows.Scan(&ticket.ID); err != nil {
		return entities.Ticket{}, fmt.Errorf("could not scan ticket id: %w", err)
	}

	return ticket, nil
}

func (tr TicketRepository) ByID(ctx context.Context, id int64) (entities.Ticket, error) {
	var ticket entities.Ticket
	err := tr.db.Conn.GetContext(ctx, &ticket, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Ticket{}, entities.NewNotFoundError("GET", "id", id, "id not found")
	}
	if err != nil {
		return entities.Ticket{}, fmt.Errorf("could not get ticket %d: %w", id, err)
	}

	return ticket, nil
}

func (tr TicketRepository) ByIDs(ctx context.Context, ids []int64) ([]entities.Ticket, error) {
	var tickets []entities.Ticket
	err := tr.db.Conn.SelectContext(ctx, &tickets, `SELECT `+ticketColumns+` FROM tickets WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("could not get tickets: %w", err)
	}

	return tickets, nil
}

// Update writes the mutable columns of ticket while the row still has the
// seat, document and payment of previous, the ticket the change was based
// on. A row changed in the meantime is a Conflict. code, created_at,
// event_id, user_id and paid are never written here.
func (tr TicketRepository) Update(ctx context.Context, previous, ticket entities.Ticket) error {
	return UpdateInTx(ctx, tr.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		var current entities.Ticket
		err := tx.GetContext(ctx, &current, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1 FOR UPDATE`, ticket.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return entities.NewNotFoundError("PUT", "id", ticket.ID, "id not found")
		}
		if err != nil {
			return fmt.Errorf("could not lock ticket %d: %w", ticket.ID, err)
		}

		if !current.SameState(previous) {
			return entities.NewConflictError("PUT", "id", ticket.ID, "ticket was changed in the meantime")
		}

		_, err = tx.NamedExecContext(ctx, `
			UPDATE tickets SET
				firstname = :firstname,
				lastname = :lastname,
				phone_number = :phone_number,
				cost = :cost,
				is_adult = :is_adult,
				is_student = :is_student,
				seat_id = :seat_id,
				pdf = :pdf
			WHERE id = :id`, ticket)
		if err != nil {
			return fmt.Errorf("could not update ticket %d: %w", ticket.ID, err)
		}

		return nil
	})
}

// DeleteCondition narrows a delete so the expiry sweep never removes a
// ticket that got paid in the meantime.
type DeleteCondition struct {
	UnpaidCreatedBefore *time.Time
}

// Delete removes the ticket and returns the removed row. Of two concurrent
// deletes only one gets the row back, the other gets NotFound.
func (tr TicketRepository) Delete(ctx context.Context, id int64, cond DeleteCondition) (entities.Ticket, error) {
	query := `DELETE FROM tickets WHERE id = $1`
	args := []any{id}
	if cond.UnpaidCreatedBefore != nil {
		query += ` AND paid = FALSE AND created_at <= $2`
		args = append(args, *cond.UnpaidCreatedBefore)
	}
	query += ` RETURNING ` + ticketColumns

	var ticket entities.Ticket
	err := tr.db.Conn.GetContext(ctx, &ticket, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Ticket{}, entities.NewNotFoundError("DELETE", "id", id, "id not found")
	}
	if err != nil {
		return entities.Ticket{}, fmt.Errorf("could not delete ticket %d: %w", id, err)
	}

	return ticket, nil
}

// PayForTickets locks the given tickets, lets updateFn validate and modify
// them and stores the result in the same transaction.
func (tr TicketRepository) PayForTickets(
	ctx context.Context,
	ids []int64,
	updateFn func(tickets []entities.Ticket) ([]entities.Ticket, error),
) ([]entities.Ticket, error) {
	var updated []entities.Ticket

	err := UpdateInTx(ctx, tr.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		var tickets []entities.Ticket
		err := tx.SelectContext(ctx, &tickets, `SELECT `+ticketColumns+` FROM tickets WHERE id = ANY($1) ORDER BY id FOR UPDATE`, pq.Array(ids))
		if err != nil {
			return fmt.Errorf("could not lock tickets: %w", err)
		}

		updated, err = updateFn(tickets)
		if err != nil {
			return err
		}

		for _, ticket := range updated {
			_, err := tx.ExecContext(ctx, `UPDATE tickets SET paid = $1, pdf = $2 WHERE id = $3`, ticket.Paid, ticket.Pdf, ticket.ID)
			if err != nil {
				return fmt.Errorf("could not update ticket %d: %w", ticket.ID, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (tr TicketRepository) FindExpired(ctx context.Context, cutoff time.Time) ([]entities.Ticket, error) {
	var tickets []entities.Ticket
	err := tr.db.Conn.SelectContext(ctx, &tickets, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE paid = FALSE AND created_at <= $1
		ORDER BY created_at`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("could not get expired tickets: %w", err)
	}

	return tickets, nil
}

func (tr TicketRepository) List(
	ctx context.Context,
	filter entities.TicketFilter,
	sort entities.TicketSort,
	page entities.PageRequest,
) ([]entities.Ticket, int, error) {
	where, args := ticketFilterClause(filter)

	var total int
	err := tr.db.Conn.GetContext(ctx, &total, `SELECT COUNT(*) FROM tickets`+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("could not count tickets: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM tickets%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		ticketColumns, where, sort.Column(), sort.Direction, len(args)+1, len(args)+2,
	)
	args = append(args, page.Size, page.Page*page.Size)

	var tickets []entities.Ticket
	if err := tr.db.Conn.SelectContext(ctx, &tickets, query, args...); err != nil {
		return nil, 0, fmt.Errorf("could not list tickets: %w", err)
	}

	return tickets, total, nil
}
