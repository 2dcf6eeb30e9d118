package seats

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS seats (
	id BIGSERIAL PRIMARY KEY,
	event_id BIGINT NOT NULL,
	sector VARCHAR(64) NOT NULL,
	"row" INT NOT NULL,
	number INT NOT NULL,
	occupied BOOLEAN NOT NULL DEFAULT FALSE,
	holder VARCHAR(64) NOT NULL DEFAULT '',
	UNIQUE (event_id, sector, "row", number)
);

CREATE INDEX IF NOT EXISTS seats_free_idx ON seats (event_id, id) WHERE occupied = FALSE;
`

func InitializeSchema(ctx context.Context, conn *sqlx.DB) error {
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("could not create seats schema: %w", err)
	}
	return nil
}
