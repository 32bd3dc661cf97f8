package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation = "23505"
	pgSerialization   = "40001"
	pgDeadlock        = "40P01"
)

func pgCode(err error) string {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		return pgerr.Code
	}
	return ""
}

// IsDuplicate - a unique index rejected the row. With constraints given, only
// violations of one of them count.
func IsDuplicate(err error, constraints ...string) bool {
	var pgerr *pgconn.PgError
	if !errors.As(err, &pgerr) || pgerr.Code != pgUniqueViolation {
		return false
	}
	if len(constraints) == 0 {
		return true
	}
	for _, c := range constraints {
		if pgerr.ConstraintName == c {
			return true
		}
	}
	return false
}

// IsNotFound - signals that the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsRetryable - the transaction lost a serialization race and may be replayed.
func IsRetryable(err error) bool {
	switch pgCode(err) {
	case pgSerialization, pgDeadlock:
		return true
	}
	return false
}
