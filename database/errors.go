package database

import "errors"

// Connection and locking sentinels. NewPool and OpenSQL wrap the driver error
// after one of the first two; both lock functions return ErrLockNotAcquired
// unwrapped.
var (
	ErrInvalidDatabaseURL = errors.New("invalid database URL")
	ErrConnectionFailed   = errors.New("cannot connect to database")
	ErrLockNotAcquired    = errors.New("another migration run holds the advisory lock")
)
