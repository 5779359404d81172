// Command pgmigrate applies versioned SQL migrations to PostgreSQL.
package main

import "github.com/FaveroFerreira/pg-migrator/internal/cli"

func main() {
	cli.Execute()
}
