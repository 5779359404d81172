package history

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// DefaultTable is the history table used when none is configured.
const DefaultTable = "__migrations"

const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
    version     VARCHAR(255) PRIMARY KEY,
    description VARCHAR(255) NOT NULL,
    sql         TEXT NOT NULL,
    applied_at  TIMESTAMP WITH TIME ZONE NOT NULL,
    checksum    VARCHAR(255) NOT NULL
)`

const selectAllSQL = `SELECT version, description, sql, applied_at, checksum FROM %s`

const insertSQL = `INSERT INTO %s (version, description, sql, applied_at, checksum) VALUES ($1, $2, $3, $4, $5)`

// QuoteTable quotes a table name, optionally schema-qualified, for use in SQL.
// Quoting keeps case, so "MyHistory" and "myhistory" are different tables.
func QuoteTable(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidTable)
	}

	parts := strings.Split(name, ".")
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidTable, name)
		}
	}

	return pgx.Identifier(parts).Sanitize(), nil
}

// CreateTableSQL returns the DDL for the given quoted table name.
func CreateTableSQL(quoted string) string {
	return fmt.Sprintf(createTableSQL, quoted)
}

// SelectAllSQL returns the history query for the given quoted table name.
func SelectAllSQL(quoted string) string {
	return fmt.Sprintf(selectAllSQL, quoted)
}

// InsertSQL returns the record insert for the given quoted table name.
func InsertSQL(quoted string) string {
	return fmt.Sprintf(insertSQL, quoted)
}
