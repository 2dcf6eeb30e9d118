package db

var schema = `
CREATE TABLE IF NOT EXISTS tickets (
	id BIGSERIAL PRIMARY KEY,
	code VARCHAR(64) NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL,
	firstname VARCHAR(255) NOT NULL,
	lastname VARCHAR(255) NOT NULL,
	phone_number VARCHAR(32) NOT NULL,
	cost NUMERIC(12, 2) NOT NULL,
	is_adult BOOLEAN NOT NULL,
	is_student BOOLEAN NOT NULL,
	event_id BIGINT NOT NULL,
	seat_id BIGINT,
	user_id BIGINT NOT NULL,
	paid BOOLEAN NOT NULL DEFAULT FALSE,
	pdf TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS tickets_unpaid_created_at_idx ON tickets (created_at) WHERE paid = FALSE;
CREATE INDEX IF NOT EXISTS tickets_user_id_idx ON tickets (user_id);
`
