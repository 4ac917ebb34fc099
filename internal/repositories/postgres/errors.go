package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQL error codes mapped to domain errors.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pqErrorCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pqErrorCode(err) == codeUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pqErrorCode(err) == codeForeignKeyViolation
}

// isRetryable reports whether the error is a transient transaction conflict
// that should be retried rather than surfaced.
func isRetryable(err error) bool {
	code := pqErrorCode(err)
	return code == codeSerializationFailure || code == codeDeadlockDetected
}
