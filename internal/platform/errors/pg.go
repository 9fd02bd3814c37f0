package errors

import (
	stderrs "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// sqlStates maps individual SQLSTATE codes whose meaning differs from their class
var sqlStates = map[string]ErrorCode{
	"23503": ErrorCodeInvalidArgument, // foreign key: the referenced row is not there
	"25006": ErrorCodeUnavailable,     // read-only transaction, e.g. a standby
	"42703": ErrorCodeNotFound,        // undefined column: results table drifted
	"42P01": ErrorCodeNotFound,        // undefined table
}

// sqlClasses maps the two-character SQLSTATE class
var sqlClasses = map[string]ErrorCode{
	"08": ErrorCodeUnavailable,     // connection exception
	"22": ErrorCodeInvalidArgument, // data exception, including bad json
	"23": ErrorCodeValidation,      // integrity constraint
	"53": ErrorCodeUnavailable,     // insufficient resources
	"57": ErrorCodeUnavailable,     // operator intervention, shutdown
}

// SQLState returns the Postgres SQLSTATE carried by err, or ""
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if stderrs.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// DBErrorCode maps a pgx error to an ErrorCode.
// ok is false when err did not come from pgx.
func DBErrorCode(err error) (code ErrorCode, ok bool) {
	switch {
	case stderrs.Is(err, pgx.ErrNoRows):
		return ErrorCodeNotFound, true
	case pgconn.Timeout(err):
		return ErrorCodeUnavailable, true
	}
	var connErr *pgconn.ConnectError
	if stderrs.As(err, &connErr) {
		return ErrorCodeUnavailable, true
	}

	state := SQLState(err)
	if state == "" {
		return ErrorCodeUnknown, false
	}
	if c, ok := sqlStates[state]; ok {
		return c, true
	}
	if c, ok := sqlClasses[state[:2]]; ok {
		return c, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps err with its mapped code, falling back to DB. nil stays nil.
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	return Wrap(err, code, msg)
}

// FromPostgresf is the formatted variant of FromPostgres
func FromPostgresf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return FromPostgres(err, fmt.Sprintf(format, a...))
}
