package repository

import (
	"errors"

	"github.com/lib/pq"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// isPgUniqueViolation checks whether err is a PostgreSQL unique constraint
// violation for the given constraint name. An empty name matches any
// unique violation.
func isPgUniqueViolation(err error, constraintName string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != pgUniqueViolation {
		return false
	}
	return constraintName == "" || pqErr.Constraint == constraintName
}
