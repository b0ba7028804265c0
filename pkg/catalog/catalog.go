// Package catalog loads the machine registry once at startup from the
// built-in demo fleet, a JSON/YAML file or a SQL database.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"forest-machine-map/pkg/database"
	"forest-machine-map/pkg/logger"
	"forest-machine-map/pkg/machines"
)

// ErrUnknownSource is returned for a source name Load does not know.
var ErrUnknownSource = errors.New("unknown catalog source")

const (
	SourceBuiltin  = "builtin"
	SourceFile     = "file"
	SourceDatabase = "database"
)

// Config selects where machines come from.
type Config struct {
	Source   string
	File     string
	Database database.Config
	// SeedDemo writes the demo fleet into an empty database before reading.
	SeedDemo bool
}

// Load builds the registry. Details are traced under the "catalog" job and
// only printed if loading fails.
func Load(ctx context.Context, cfg Config, trace *logger.Trace) (*machines.Registry, error) {
	const job = "catalog"
	trace.Begin(job)
	logf := trace.Logf(job)

	records, err := readRecords(ctx, cfg, logf)
	if err != nil {
		trace.FlushError(job, err)
		return nil, err
	}
	reg, err := machines.NewRegistry(records)
	if err != nil {
		err = fmt.Errorf("build registry: %w", err)
		trace.FlushError(job, err)
		return nil, err
	}
	trace.Success(job, fmt.Sprintf("catalog loaded: %d machines from %s", reg.Len(), sourceName(cfg)))
	return reg, nil
}

func sourceName(cfg Config) string {
	switch strings.ToLower(strings.TrimSpace(cfg.Source)) {
	case SourceFile:
		return cfg.File
	case SourceDatabase:
		return cfg.Database.DBType
	}
	return SourceBuiltin
}

func readRecords(ctx context.Context, cfg Config, logf func(string, ...any)) ([]machines.Record, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Source)) {
	case "", SourceBuiltin:
		logf("using built-in demo fleet")
		return machines.DemoRecords(), nil

	case SourceFile:
		logf("reading catalog file %s", cfg.File)
		return ReadFile(cfg.File)

	case SourceDatabase:
		db, err := database.NewDatabase(cfg.Database, logf)
		if err != nil {
			return nil, err
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		if cfg.SeedDemo {
			n, err := db.SeedMachines(ctx, machines.DemoRecords())
			if err != nil {
				return nil, fmt.Errorf("seed demo fleet: %w", err)
			}
			logf("seeded %d demo machines", n)
		}
		return db.LoadMachines(ctx)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source)
}
