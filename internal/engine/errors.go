package engine

import (
	"errors"
	"fmt"
)

// ErrMissingMigration is matched by every MissingMigrationError.
var ErrMissingMigration = errors.New("applied migration missing from source")

// ErrChecksumMismatch is matched by every ChecksumMismatchError.
var ErrChecksumMismatch = errors.New("migration checksum mismatch")

// ErrApply is matched by every ApplyError.
var ErrApply = errors.New("migration apply failed")

// MissingMigrationError reports a history record with no script on disk.
type MissingMigrationError struct {
	Version string
}

func (e *MissingMigrationError) Error() string {
	return fmt.Sprintf("migration %s is recorded as applied but has no script", e.Version)
}

func (e *MissingMigrationError) Unwrap() error { return ErrMissingMigration }

// ChecksumMismatchError reports a script whose content no longer matches the
// checksum recorded when it was applied.
type ChecksumMismatchError struct {
	Version  string
	Recorded string
	Computed string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("migration %s: checksum mismatch: recorded=%s computed=%s",
		e.Version, e.Recorded, e.Computed)
}

func (e *ChecksumMismatchError) Unwrap() error { return ErrChecksumMismatch }

// ApplyError reports a script that failed to apply. Nothing of the script
// was persisted.
type ApplyError struct {
	Version     string
	Description string
	Err         error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("applying migration %s (%s): %v", e.Version, e.Description, e.Err)
}

// Unwrap exposes both ErrApply and the underlying cause.
func (e *ApplyError) Unwrap() []error {
	return []error{ErrApply, e.Err}
}
