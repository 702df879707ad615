package service

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the requested listing does not exist
	ErrNotFound = errors.New("listing not found")

	// ErrNotOwner indicates the caller does not own the listing
	ErrNotOwner = errors.New("not authorized to modify this listing")

	// ErrConflict indicates the transaction kept aborting on serialization
	// failures after bounded retries
	ErrConflict = errors.New("operation conflicted with a concurrent request")
)

// ValidationError is a field-scoped input error surfaced to the caller with
// the offending field name
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// PersistenceError is a database failure mapped to a user-facing message
type PersistenceError struct {
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	return e.Message
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

const (
	pgForeignKeyViolation   = "23503"
	pgSerializationFailure  = "40001"
	msgInvalidUserReference = "Invalid user reference."
	msgDatabaseError        = "Database error occurred. Please try again."
)

// mapPersistenceError converts raw database errors into the user-facing
// taxonomy. Typed errors produced by this package pass through unchanged.
func mapPersistenceError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotOwner) || errors.Is(err, ErrConflict) {
		return err
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return &PersistenceError{Message: msgInvalidUserReference, Err: err}
	}

	return &PersistenceError{Message: msgDatabaseError, Err: err}
}

// isSerializationFailure reports whether the database aborted the transaction
// because it could not serialize concurrent access
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgSerializationFailure
}
