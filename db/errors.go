package db

import (
	"errors"

	"github.com/lib/pq"
)

const uniqueViolation = "unique_violation"

func postgresErrorName(err error) string {
	var psqlErr *pq.Error
	if errors.As(err, &psqlErr) {
		return psqlErr.Code.Name()
	}
	return ""
}

// IsErrorUniqueViolation reports a duplicated ticket code or seat position.
func IsErrorUniqueViolation(err error) bool {
	return postgresErrorName(err) == uniqueViolation
}
