package errors

// Postgres helpers: SQLSTATE mapping and contention detection

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the service reacts to
const (
	SQLStateUniqueViolation      = "23505"
	SQLStateForeignKeyViolation  = "23503"
	SQLStateNotNullViolation     = "23502"
	SQLStateCheckViolation       = "23514"
	SQLStateInvalidText          = "22P02"
	SQLStateSerializationFailure = "40001"
	SQLStateDeadlockDetected     = "40P01"
	SQLStateLockNotAvailable     = "55P03"
	SQLStateQueryCanceled        = "57014"
	SQLStateCannotConnectNow     = "57P03"
)

// ExtractPgError returns the *pgconn.PgError in err's chain
func ExtractPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if stderrs.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsSQLState reports whether err is a Postgres error with code
func IsSQLState(err error, code string) bool {
	pgErr, ok := ExtractPgError(err)
	return ok && pgErr.Code == code
}

// IsDuplicateKey reports a unique violation
func IsDuplicateKey(err error) bool { return IsSQLState(err, SQLStateUniqueViolation) }

// IsNoRows reports pgx.ErrNoRows anywhere in the chain
func IsNoRows(err error) bool { return stderrs.Is(err, pgx.ErrNoRows) }

// IsLockNotAvailable reports a lock wait that hit lock_timeout or NOWAIT.
// Postgres reports lock_timeout as 55P03; some proxies surface it as a
// canceled statement with the message only
func IsLockNotAvailable(err error) bool {
	if err == nil {
		return false
	}
	if IsSQLState(err, SQLStateLockNotAvailable) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "canceling statement due to lock timeout") ||
		strings.Contains(s, "could not obtain lock on row")
}

// DBErrorCode maps a Postgres error to an ErrorCode; ok is false for
// non-Postgres errors
func DBErrorCode(err error) (ErrorCode, bool) {
	if IsNoRows(err) {
		return ErrorCodeNotFound, true
	}
	pgErr, ok := ExtractPgError(err)
	if !ok {
		return ErrorCodeUnknown, false
	}
	switch pgErr.Code {
	case SQLStateUniqueViolation:
		return ErrorCodeDuplicateKey, true
	case SQLStateForeignKeyViolation, SQLStateInvalidText:
		return ErrorCodeInvalidArgument, true
	case SQLStateNotNullViolation, SQLStateCheckViolation:
		return ErrorCodeValidation, true
	case SQLStateLockNotAvailable, SQLStateQueryCanceled:
		return ErrorCodeTimeout, true
	case SQLStateCannotConnectNow:
		return ErrorCodeUnavailable, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps err with its mapped code. nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	e := Wrap(err, code, msg)
	if IsLockNotAvailable(err) {
		return WithField(e, "lock")
	}
	return e
}

// FromPostgresf is FromPostgres with a formatted message
func FromPostgresf(err error, format string, a ...any) error {
	return FromPostgres(err, fmt.Sprintf(format, a...))
}

// IsRetryable reports transient database contention worth retrying at a
// higher level. Local cancellations are not retryable
func IsRetryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pgErr, ok := ExtractPgError(err); ok {
		switch pgErr.Code {
		case SQLStateSerializationFailure, SQLStateDeadlockDetected, SQLStateLockNotAvailable, SQLStateCannotConnectNow:
			return true
		}
		return false
	}
	s := strings.ToLower(Root(err).Error())
	for _, p := range []string{
		"commit unexpectedly resulted in rollback",
		"deadlock detected",
		"could not serialize access",
		"canceling statement due to lock timeout",
		"connection refused",
	} {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
