package migrator

import (
	"github.com/FaveroFerreira/pg-migrator/internal/engine"
	"github.com/FaveroFerreira/pg-migrator/internal/history"
	"github.com/FaveroFerreira/pg-migrator/internal/migration"
)

// Error types returned by Migrate and Plan. Use errors.As to inspect them.
type (
	IOError               = migration.IOError
	ParseError            = migration.ParseError
	DatabaseError         = history.DatabaseError
	MissingMigrationError = engine.MissingMigrationError
	ChecksumMismatchError = engine.ChecksumMismatchError
	ApplyError            = engine.ApplyError
)

// Sentinels matched by the error types above. Use errors.Is to test for them.
var (
	ErrIO               = migration.ErrIO
	ErrParse            = migration.ErrParse
	ErrDuplicateVersion = migration.ErrDuplicateVersion
	ErrDatabase         = history.ErrDatabase
	ErrInvalidTable     = history.ErrInvalidTable
	ErrMissingMigration = engine.ErrMissingMigration
	ErrChecksumMismatch = engine.ErrChecksumMismatch
	ErrApply            = engine.ErrApply
)
