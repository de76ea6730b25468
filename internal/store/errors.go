package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

const pqUniqueViolation = "23505"

// UniqueViolationError is returned when an insert collides with a unique
// constraint. Field names the offending column.
type UniqueViolationError struct {
	Field string
	Err   error
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique violation on %s", e.Field)
}

func (e *UniqueViolationError) Unwrap() error {
	return e.Err
}

// translateError maps driver-specific constraint errors to store errors.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return &UniqueViolationError{Field: fieldFromConstraint(pqErr.Constraint), Err: err}
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return &UniqueViolationError{Field: fieldFromConstraint(sqliteErr.Error()), Err: err}
	}

	return err
}

// fieldFromConstraint accepts a postgres constraint name
// ("accounts_email_key") or a sqlite message
// ("UNIQUE constraint failed: accounts.email").
func fieldFromConstraint(s string) string {
	if strings.Contains(s, "email") {
		return "email"
	}
	return "username"
}
