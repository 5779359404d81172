// Package migrator applies version-ordered SQL migration scripts to a
// PostgreSQL database exactly once and detects drift between the scripts on
// disk and the recorded history.
//
// Scripts live in a single directory and are named V<version>__<description>.sql,
// for example V001__create_users.sql. Versions are compared as strings, so
// they should be zero-padded. Each script runs in its own transaction together
// with the insert of its history record.
//
//	pool, err := pgxpool.New(ctx, url)
//	if err != nil {
//		return err
//	}
//
//	m := migrator.New("migrations", migrator.WithTable("schema_history"))
//	if err := m.Migrate(ctx, database.FromPgx(pool)); err != nil {
//		return err
//	}
//
// Both the pgx binding (database.FromPgx) and the database/sql binding
// (database.FromSQL) are supported.
package migrator
