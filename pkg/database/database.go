// Package database reads and seeds the machine catalog in a SQL engine.
// The catalog is read once at startup; nothing here writes dashboard state.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Database wraps the sql handle together with the normalised driver name so
// query builders can pick placeholders and column types.
type Database struct {
	DB     *sql.DB
	Driver string
	logf   func(string, ...any)
}

// Config holds connection settings.
type Config struct {
	DBType    string // sqlite, genji, duckdb or pgx
	DBPath    string // file path for embedded engines
	DBConn    string // raw DSN for pgx; overrides the host fields
	DBHost    string
	DBPort    int
	DBUser    string
	DBPass    string
	DBName    string
	PGSSLMode string
}

func normalizeDBType(dbType string) string {
	return strings.ToLower(strings.TrimSpace(dbType))
}

// DSN builds the data source name for the configured driver.
func (c Config) DSN() (string, error) {
	switch normalizeDBType(c.DBType) {
	case "sqlite":
		if c.DBPath == "" {
			return "machines.sqlite", nil
		}
		return c.DBPath, nil
	case "genji":
		if c.DBPath == "" {
			return "machines.genji", nil
		}
		return c.DBPath, nil
	case "duckdb":
		if c.DBPath == "" {
			return "machines.duckdb", nil
		}
		return c.DBPath, nil
	case "pgx":
		if strings.TrimSpace(c.DBConn) != "" {
			return c.DBConn, nil
		}
		sslMode := c.PGSSLMode
		if sslMode == "" {
			sslMode = "prefer"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, sslMode), nil
	}
	return "", fmt.Errorf("unsupported database type: %s", c.DBType)
}

// NewDatabase opens the catalog database and checks it answers.
// Embedded engines run over a single connection.
func NewDatabase(config Config, logf func(string, ...any)) (*Database, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	driverName := normalizeDBType(config.DBType)
	dsn, err := config.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening the database: %w", err)
	}

	switch driverName {
	case "sqlite", "genji", "duckdb":
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	case "pgx":
		db.SetMaxOpenConns(4)
		db.SetConnMaxIdleTime(2 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	if driverName == "sqlite" {
		if err := tuneSQLiteConnection(ctx, db, logf); err != nil {
			logf("sqlite tuning skipped: %v", err)
		}
	}

	logf("using database driver %s", driverName)
	return &Database{DB: db, Driver: driverName, logf: logf}, nil
}

// Close releases the connection pool.
func (db *Database) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

// tuneSQLiteConnection applies the pragmas that keep a read-mostly file fast.
func tuneSQLiteConnection(ctx context.Context, db *sql.DB, logf func(string, ...any)) error {
	steps := []struct {
		label     string
		query     string
		expectRow bool
	}{
		{label: "journal_mode", query: "PRAGMA journal_mode=WAL;", expectRow: true},
		{label: "synchronous", query: "PRAGMA synchronous=NORMAL;"},
		{label: "busy_timeout", query: "PRAGMA busy_timeout=5000;"},
	}
	for _, step := range steps {
		if step.expectRow {
			var mode string
			if err := db.QueryRowContext(ctx, step.query).Scan(&mode); err != nil {
				return fmt.Errorf("apply %s: %w", step.label, err)
			}
			logf("sqlite tuning %s -> %s", step.label, mode)
			continue
		}
		if _, err := db.ExecContext(ctx, step.query); err != nil {
			return fmt.Errorf("apply %s: %w", step.label, err)
		}
	}
	return nil
}

func newPlaceholderGenerator(driver string) func() string {
	if driver == "pgx" {
		counter := 0
		return func() string {
			counter++
			return fmt.Sprintf("$%d", counter)
		}
	}
	return func() string { return "?" }
}

func realColumnType(driver string) string {
	switch driver {
	case "pgx":
		return "DOUBLE PRECISION"
	case "sqlite":
		return "REAL"
	}
	return "DOUBLE"
}
