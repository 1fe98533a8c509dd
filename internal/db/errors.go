package db

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsTransient reports failures that a fresh transaction may not hit again:
// serialization failures, deadlocks and lock timeouts.
func IsTransient(err error) bool {
	switch pgCode(err) {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
		return true
	}
	return false
}

func IsUniqueViolation(err error) bool {
	return pgCode(err) == pgerrcode.UniqueViolation
}

// IsExclusionViolation is raised by the slot exclusion constraint.
func IsExclusionViolation(err error) bool {
	return pgCode(err) == pgerrcode.ExclusionViolation
}
