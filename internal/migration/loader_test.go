package migration_test

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FaveroFerreira/pg-migrator/internal/migration"
)

const migrationsDir = "/migrations"

func TestLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setup     func(t *testing.T, fs afero.Fs)
		dir       string
		opts      []migration.LoadOption
		wantErrIs error
		check     func(t *testing.T, c migration.Catalog)
	}{
		{
			name: "two scripts are parsed and ordered",
			setup: func(t *testing.T, fs afero.Fs) {
				t.Helper()
				writeFile(t, fs, "V002__add_email.sql", "ALTER TABLE users ADD email TEXT;")
				writeFile(t, fs, "V001__create_users.sql", "CREATE TABLE users (id INT);")
			},
			check: func(t *testing.T, c migration.Catalog) {
				t.Helper()
				require.Len(t, c, 2)
				assert.Equal(t, []string{"001", "002"}, c.Versions())
				assert.Equal(t, "create_users", c[0].Description)
				assert.Equal(t, "CREATE TABLE users (id INT);", c[0].SQL)
				assert.Equal(t, "V001__create_users.sql", c[0].Filename)
				assert.Len(t, c[0].Checksum, 64)
			},
		},
		{
			name: "empty directory yields empty catalog",
			setup: func(t *testing.T, fs afero.Fs) {
				t.Helper()
				require.NoError(t, fs.MkdirAll(migrationsDir, 0o755))
			},
			check: func(t *testing.T, c migration.Catalog) {
				t.Helper()
				assert.Empty(t, c)
			},
		},
		{
			name:      "missing directory is an io error",
			setup:     func(t *testing.T, _ afero.Fs) { t.Helper() },
			dir:       "/nowhere",
			wantErrIs: migration.ErrIO,
		},
		{
			name: "non-matching entries are skipped",
			setup: func(t *testing.T, fs afero.Fs) {
				t.Helper()
				writeFile(t, fs, "README.md", "# readme")
				writeFile(t, fs, "V1_missing_separator.sql", "SELECT 1;")
				writeFile(t, fs, "v001__lowercase.sql", "SELECT 1;")
				writeFile(t, fs, "V001__create_users.SQL", "SELECT 1;")
				writeFile(t, fs, "V001__create_users.sql", "SELECT 1;")
				require.NoError(t, fs.MkdirAll(filepath.Join(migrationsDir, "V002__dir.sql"), 0o755))
			},
			check: func(t *testing.T, c migration.Catalog) {
				t.Helper()
				require.Len(t, c, 1)
				assert.Equal(t, "001", c[0].Version)
			},
		},
		{
			name: "description keeps inner double underscores",
			setup: func(t *testing.T, fs afero.Fs) {
				t.Helper()
				writeFile(t, fs, "V7__add__audit_log.sql", "SELECT 1;")
			},
			check: func(t *testing.T, c migration.Catalog) {
				t.Helper()
				require.Len(t, c, 1)
				assert.Equal(t, "7", c[0].Version)
				assert.Equal(t, "add__audit_log", c[0].Description)
			},
		},
		{
			name: "sql is not trimmed before checksum",
			setup: func(t *testing.T, fs afero.Fs) {
				t.Helper()
				writeFile(t, fs, "V001__padded.sql", "  SELECT 1;  \n")
			},
			check: func(t *testing.T, c migration.Catalog) {
				t.Helper()
				require.Len(t, c, 1)
				assert.Equal(t, "  SELECT 1;  \n", c[0].SQL)
				assert.Equal(t, migration.ComputeChecksum("  SELECT 1;  \n"), c[0].Checksum)
				assert.NotEqual(t, migration.ComputeChecksum("SELECT 1;"), c[0].Checksum)
			},
		},
		{
			name: "lexical order puts 10 before 2",
			setup: func(t *testing.T, fs afero.Fs) {
				t.Helper()
				writeFile(t, fs, "V2__two.sql", "SELECT 2;")
				writeFile(t, fs, "V10__ten.sql", "SELECT 10;")
			},
			check: func(t *testing.T, c migration.Catalog) {
				t.Helper()
				assert.Equal(t, []string{"10", "2"}, c.Versions())
			},
		},
		{
			name: "numeric order puts 2 before 10",
			setup: func(t *testing.T, fs afero.Fs) {
				t.Helper()
				writeFile(t, fs, "V2__two.sql", "SELECT 2;")
				writeFile(t, fs, "V10__ten.sql", "SELECT 10;")
			},
			opts: []migration.LoadOption{migration.WithVersionOrder(migration.OrderNumeric)},
			check: func(t *testing.T, c migration.Catalog) {
				t.Helper()
				assert.Equal(t, []string{"2", "10"}, c.Versions())
			},
		},
		{
			name: "numerically equal versions collide",
			setup: func(t *testing.T, fs afero.Fs) {
				t.Helper()
				writeFile(t, fs, "V1__one.sql", "SELECT 1;")
				writeFile(t, fs, "V01__one_again.sql", "SELECT 1;")
			},
			opts:      []migration.LoadOption{migration.WithVersionOrder(migration.OrderNumeric)},
			wantErrIs: migration.ErrDuplicateVersion,
		},
		{
			name: "identical version strings collide",
			setup: func(t *testing.T, fs afero.Fs) {
				t.Helper()
				writeFile(t, fs, "V001__first.sql", "SELECT 1;")
				writeFile(t, fs, "V001__second.sql", "SELECT 2;")
			},
			wantErrIs: migration.ErrParse,
		},
		{
			name: "custom pattern is honored",
			setup: func(t *testing.T, fs afero.Fs) {
				t.Helper()
				writeFile(t, fs, "20240101120000_create_posts.sql", "CREATE TABLE posts (id INT);")
			},
			opts: []migration.LoadOption{migration.WithPattern(`^(\d{14})_(.+)\.sql$`)},
			check: func(t *testing.T, c migration.Catalog) {
				t.Helper()
				require.Len(t, c, 1)
				assert.Equal(t, "20240101120000", c[0].Version)
				assert.Equal(t, "create_posts", c[0].Description)
			},
		},
		{
			name:      "pattern without two groups is a parse error",
			setup:     func(t *testing.T, _ afero.Fs) { t.Helper() },
			opts:      []migration.LoadOption{migration.WithPattern(`^V(\d+)\.sql$`)},
			wantErrIs: migration.ErrParse,
		},
		{
			name:      "invalid pattern is a parse error",
			setup:     func(t *testing.T, _ afero.Fs) { t.Helper() },
			opts:      []migration.LoadOption{migration.WithPattern(`^V(\d+`)},
			wantErrIs: migration.ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := afero.NewMemMapFs()
			tt.setup(t, fs)

			dir := tt.dir
			if dir == "" {
				dir = migrationsDir
			}

			c, err := migration.Load(fs, dir, tt.opts...)

			if tt.wantErrIs != nil {
				require.Error(t, err)
				require.ErrorIs(t, err, tt.wantErrIs)

				return
			}

			require.NoError(t, err)

			if tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}

func TestLoad_ioErrorCarriesPath(t *testing.T) {
	t.Parallel()

	_, err := migration.Load(afero.NewMemMapFs(), "/nowhere")

	var ioErr *migration.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "/nowhere", ioErr.Path)
	assert.Contains(t, err.Error(), "reading migrations directory")
}

func TestLoad_duplicateNamesBothFiles(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "V001__first.sql", "SELECT 1;")
	writeFile(t, fs, "V001__second.sql", "SELECT 2;")

	_, err := migration.Load(fs, migrationsDir)

	var parseErr *migration.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.ErrorIs(t, err, migration.ErrDuplicateVersion)
	assert.Contains(t, err.Error(), "V001__first.sql")
	assert.Contains(t, err.Error(), "V001__second.sql")
}

func TestCatalog_Lookup(t *testing.T) {
	t.Parallel()

	c := migration.Catalog{
		{Version: "001", Description: "a"},
		{Version: "002", Description: "b"},
	}

	s, ok := c.Lookup("002")
	require.True(t, ok)
	assert.Equal(t, "b", s.Description)

	_, ok = c.Lookup("003")
	assert.False(t, ok)
}

func writeFile(t *testing.T, fs afero.Fs, name, content string) {
	t.Helper()

	err := afero.WriteFile(fs, filepath.Join(migrationsDir, name), []byte(content), 0o644)
	require.NoError(t, err)
}
