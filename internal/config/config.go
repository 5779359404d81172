package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FaveroFerreira/pg-migrator/internal/history"
	"github.com/FaveroFerreira/pg-migrator/internal/migration"
)

// Supported database drivers.
const (
	DriverPgx = "pgx"
	DriverPQ  = "pq"
)

// Default values for configuration fields.
const (
	DefaultDriver           = DriverPgx
	DefaultMigrationsDir    = "./migrations"
	DefaultMigrationsTable  = history.DefaultTable
	DefaultLockTimeout      time.Duration = 0 // unbounded
	DefaultStatementTimeout time.Duration = 0 // unbounded
	DefaultVersionOrder     = "lexical"
	DefaultLogLevel         = "info"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the application configuration loaded from file, environment, and flags.
type Config struct {
	DatabaseURL             string
	Driver                  string
	MigrationsDir           string
	MigrationsTable         string
	IgnoreMissingMigrations bool
	LockTimeout             time.Duration
	StatementTimeout        time.Duration
	VersionOrder            string
	AdvisoryLock            bool
	LogLevel                string
}

// yamlConfig is the raw YAML file representation with string durations.
type yamlConfig struct {
	DatabaseURL             string `yaml:"database_url"`
	Driver                  string `yaml:"driver"`
	MigrationsDir           string `yaml:"migrations_dir"`
	MigrationsTable         string `yaml:"migrations_table"`
	IgnoreMissingMigrations *bool  `yaml:"ignore_missing_migrations"`
	LockTimeout             string `yaml:"lock_timeout"`
	StatementTimeout        string `yaml:"statement_timeout"`
	VersionOrder            string `yaml:"version_order"`
	AdvisoryLock            *bool  `yaml:"advisory_lock"`
	LogLevel                string `yaml:"log_level"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		Driver:           DefaultDriver,
		MigrationsDir:    DefaultMigrationsDir,
		MigrationsTable:  DefaultMigrationsTable,
		LockTimeout:      DefaultLockTimeout,
		StatementTimeout: DefaultStatementTimeout,
		VersionOrder:     DefaultVersionOrder,
		LogLevel:         DefaultLogLevel,
	}
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw)
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) (*Config, error) {
	cfg := New()

	setString(&cfg.DatabaseURL, raw.DatabaseURL)
	setString(&cfg.Driver, raw.Driver)
	setString(&cfg.MigrationsDir, raw.MigrationsDir)
	setString(&cfg.MigrationsTable, raw.MigrationsTable)
	setString(&cfg.VersionOrder, raw.VersionOrder)
	setString(&cfg.LogLevel, raw.LogLevel)

	if raw.IgnoreMissingMigrations != nil {
		cfg.IgnoreMissingMigrations = *raw.IgnoreMissingMigrations
	}

	if raw.AdvisoryLock != nil {
		cfg.AdvisoryLock = *raw.AdvisoryLock
	}

	if raw.LockTimeout != "" {
		d, err := time.ParseDuration(raw.LockTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing lock_timeout %q: %w", raw.LockTimeout, err)
		}

		cfg.LockTimeout = d
	}

	if raw.StatementTimeout != "" {
		d, err := time.ParseDuration(raw.StatementTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing statement_timeout %q: %w", raw.StatementTimeout, err)
		}

		cfg.StatementTimeout = d
	}

	return cfg, nil
}

// MergeEnv overrides config fields from MIGRATE_* environment variables.
// Values that fail to parse leave the field unchanged.
func MergeEnv(cfg *Config) {
	setString(&cfg.DatabaseURL, os.Getenv("MIGRATE_DATABASE_URL"))
	setString(&cfg.Driver, os.Getenv("MIGRATE_DRIVER"))
	setString(&cfg.MigrationsDir, os.Getenv("MIGRATE_MIGRATIONS_DIR"))
	setString(&cfg.MigrationsTable, os.Getenv("MIGRATE_MIGRATIONS_TABLE"))
	setString(&cfg.VersionOrder, os.Getenv("MIGRATE_VERSION_ORDER"))
	setString(&cfg.LogLevel, os.Getenv("MIGRATE_LOG_LEVEL"))

	if v := os.Getenv("MIGRATE_IGNORE_MISSING_MIGRATIONS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.IgnoreMissingMigrations = b
		}
	}

	if v := os.Getenv("MIGRATE_ADVISORY_LOCK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AdvisoryLock = b
		}
	}

	if v := os.Getenv("MIGRATE_LOCK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LockTimeout = d
		}
	}

	if v := os.Getenv("MIGRATE_STATEMENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.StatementTimeout = d
		}
	}
}

// Validate rejects values the migrator cannot act on.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverPgx, DriverPQ:
	default:
		return fmt.Errorf("%w: unknown driver %q (want %s or %s)", ErrInvalidConfig, c.Driver, DriverPgx, DriverPQ)
	}

	if _, err := migration.ParseOrder(c.VersionOrder); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if _, err := history.QuoteTable(c.MigrationsTable); err != nil {
		return fmt.Errorf("%w: migrations_table: %w", ErrInvalidConfig, err)
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.LockTimeout < 0 || c.StatementTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}

	return nil
}

// Order returns the parsed version order. Call Validate first.
func (c *Config) Order() migration.Order {
	o, _ := migration.ParseOrder(c.VersionOrder)

	return o
}

// ParseLogLevel maps debug, info, warn or error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}

	return lvl, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
