package history

import (
	"errors"
	"fmt"
)

// ErrDatabase is matched by every DatabaseError.
var ErrDatabase = errors.New("history store database failure")

// ErrInvalidTable indicates an empty or malformed history table name.
var ErrInvalidTable = errors.New("invalid history table name")

// DatabaseError wraps a failure reported by the database while operating on
// the history table or a migration transaction.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrDatabase and the driver error.
func (e *DatabaseError) Unwrap() []error {
	return []error{ErrDatabase, e.Err}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}

	return &DatabaseError{Op: op, Err: err}
}
