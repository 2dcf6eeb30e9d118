package events

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Events are created by the event management service. This module only
// reads them and keeps their sold out flag.
const schema = `
CREATE TABLE IF NOT EXISTS events (
	id BIGSERIAL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	max_ticket_amount INT NOT NULL,
	is_sold_out BOOLEAN NOT NULL DEFAULT FALSE,
	unit_price NUMERIC(12, 2) NOT NULL,
	currency VARCHAR(3) NOT NULL,
	children_discount NUMERIC(5, 2),
	students_discount NUMERIC(5, 2),
	start_at TIMESTAMPTZ NOT NULL,
	end_at TIMESTAMPTZ NOT NULL,
	country VARCHAR(64) NOT NULL DEFAULT '',
	address VARCHAR(255) NOT NULL DEFAULT '',
	localization_name VARCHAR(255) NOT NULL DEFAULT '',
	is_without_seats BOOLEAN NOT NULL DEFAULT FALSE
);
`

func InitializeSchema(ctx context.Context, conn *sqlx.DB) error {
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("could not create events schema: %w", err)
	}
	return nil
}
