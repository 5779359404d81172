// Package parser runs migration scripts through the PostgreSQL parser before
// they reach a database.
package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"errors"
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/FaveroFerreira/pg-migrator/internal/migration"
)

// ErrInvalidSQL indicates a script the PostgreSQL parser rejects.
var ErrInvalidSQL = errors.New("invalid SQL")

// ErrNonTransactional indicates a statement PostgreSQL refuses to run inside a
// transaction block, such as CREATE INDEX CONCURRENTLY or VACUUM.
var ErrNonTransactional = errors.New("statement cannot run inside a transaction")

// ErrTransactionControl indicates BEGIN, COMMIT or ROLLBACK inside a script,
// which would break the per-script transaction.
var ErrTransactionControl = errors.New("script controls its own transaction")

// Report is the preflight result for one script.
type Report struct {
	Script     migration.Script
	Statements int
	Err        error
}

// Check parses every script in catalog. It never stops early; callers
// inspect each Report or use FirstError.
func Check(catalog migration.Catalog) []Report {
	reports := make([]Report, 0, len(catalog))

	for _, s := range catalog {
		n, err := CheckScript(s.SQL)
		reports = append(reports, Report{Script: s, Statements: n, Err: err})
	}

	return reports
}

// FirstError returns the first failed report as an error naming its file.
func FirstError(reports []Report) error {
	for _, r := range reports {
		if r.Err != nil {
			return fmt.Errorf("%s: %w", r.Script.Filename, r.Err)
		}
	}

	return nil
}

// CheckScript parses sql and returns its statement count. It fails when the
// script does not parse or contains a statement that cannot run inside the
// migration transaction.
func CheckScript(sql string) (int, error) {
	stmts, err := statements(sql)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidSQL, err)
	}

	for i, stmt := range stmts {
		if err := checkStatement(stmt); err != nil {
			return len(stmts), fmt.Errorf("statement %d: %w", i+1, err)
		}
	}

	return len(stmts), nil
}

// statements splits sql into parsed statements. Blank scripts have none.
func statements(sql string) ([]*pg_query.RawStmt, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, nil
	}

	tree, err := pg_query.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	return tree.GetStmts(), nil
}

func checkStatement(stmt *pg_query.RawStmt) error {
	if stmt.GetStmt() == nil {
		return nil
	}

	switch node := stmt.GetStmt().GetNode().(type) {
	case *pg_query.Node_TransactionStmt:
		return ErrTransactionControl
	case *pg_query.Node_IndexStmt:
		if node.IndexStmt != nil && node.IndexStmt.Concurrent {
			return fmt.Errorf("%w: CREATE INDEX CONCURRENTLY", ErrNonTransactional)
		}
	case *pg_query.Node_DropStmt:
		if node.DropStmt != nil && node.DropStmt.Concurrent {
			return fmt.Errorf("%w: DROP INDEX CONCURRENTLY", ErrNonTransactional)
		}
	case *pg_query.Node_VacuumStmt:
		return fmt.Errorf("%w: VACUUM", ErrNonTransactional)
	case *pg_query.Node_CreatedbStmt:
		return fmt.Errorf("%w: CREATE DATABASE", ErrNonTransactional)
	case *pg_query.Node_DropdbStmt:
		return fmt.Errorf("%w: DROP DATABASE", ErrNonTransactional)
	}

	return nil
}
