package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

type DB struct {
	Conn *sqlx.DB
}

// NewDBConn opens a traced postgres connection pool.
func NewDBConn(connString string) (DB, error) {
	traceDB, err := otelsql.Open("postgres", connString,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithDBName("tickets"),
	)
	if err != nil {
		return DB{}, fmt.Errorf("could not open database: %w", err)
	}

	return DB{Conn: sqlx.NewDb(traceDB, "postgres")}, nil
}

func (db *DB) Close() error {
	return db.Conn.Close()
}

func (db *DB) MigrateSchema(ctx context.Context) error {
	if _, err := db.Conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("could not migrate tickets schema: %w", err)
	}
	return nil
}
