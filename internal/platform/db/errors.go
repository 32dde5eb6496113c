package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dental/dental/internal/platform/apperr"
)

// PostgreSQL SQLSTATE codes the service reacts to.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeForeignKeyViolation  = "23503"
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeInvalidText          = "22P02"
	codeNumericOutOfRange    = "22003"
)

// Classify maps driver errors onto apperr kinds. Errors that are already
// classified, or that PostgreSQL reports with an unrelated code, pass
// through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var classified *apperr.Error
	if errors.As(err, &classified) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Wrap(apperr.KindNotFound, err, "record not found")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected:
		return apperr.Conflict(err, "concurrent write detected, retry the request")
	case codeUniqueViolation:
		return apperr.Conflict(err, "duplicate record")
	case codeForeignKeyViolation:
		return apperr.Wrap(apperr.KindNotFound, err, "referenced record does not exist")
	case codeCheckViolation, codeInvalidText, codeNumericOutOfRange:
		return apperr.Wrap(apperr.KindInvalidInput, err, "value rejected by database")
	}
	return err
}

// IsRetryable reports whether the whole unit of work can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, apperr.ErrConflict)
}
