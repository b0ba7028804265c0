package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"forest-machine-map/pkg/machines"
)

// EnsureSchema creates the machines table when it is missing.
func (db *Database) EnsureSchema(ctx context.Context) error {
	colType := realColumnType(db.Driver)
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS machines (
id TEXT PRIMARY KEY,
seq INTEGER NOT NULL,
name TEXT NOT NULL,
model TEXT NOT NULL,
serial_number TEXT NOT NULL,
manufacture_year INTEGER NOT NULL,
operator_name TEXT,
lat %s NOT NULL,
lng %s NOT NULL,
status TEXT NOT NULL
)`, colType, colType)
	if _, err := db.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create machines table: %w", err)
	}
	return nil
}

// LoadMachines reads every machine in insertion order. Status text is parsed
// leniently, so unknown labels come back as machines.StatusUnknown.
// Genji only sorts on a single column, and seq is unique, so seq alone orders
// the rows on every engine.
func (db *Database) LoadMachines(ctx context.Context) ([]machines.Record, error) {
	rows, err := db.DB.QueryContext(ctx, `SELECT id, name, model, serial_number, manufacture_year,
operator_name, lat, lng, status FROM machines ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query machines: %w", err)
	}
	defer rows.Close()

	var out []machines.Record
	for rows.Next() {
		var (
			rec      machines.Record
			operator sql.NullString
			status   string
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Model, &rec.SerialNumber, &rec.ManufactureYear,
			&operator, &rec.Position.Lat, &rec.Position.Lng, &status); err != nil {
			return nil, fmt.Errorf("scan machine: %w", err)
		}
		rec.OperatorName = operator.String
		rec.Status = machines.ParseStatus(status)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate machines: %w", err)
	}
	db.logf("loaded %d machines from %s", len(out), db.Driver)
	return out, nil
}

// SeedMachines inserts records whose id is not present yet and returns how
// many were written. It reads before inserting instead of relying on
// engine-specific upsert syntax.
func (db *Database) SeedMachines(ctx context.Context, records []machines.Record) (int, error) {
	// MAX is NULL on an empty table. Genji has no COALESCE, so the NULL is
	// folded to zero by the scan instead.
	var last sql.NullInt64
	if err := db.DB.QueryRowContext(ctx, `SELECT MAX(seq) FROM machines`).Scan(&last); err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	seq := last.Int64

	inserted := 0
	for _, rec := range records {
		placeholder := newPlaceholderGenerator(db.Driver)
		var existing string
		err := db.DB.QueryRowContext(ctx,
			fmt.Sprintf("SELECT id FROM machines WHERE id = %s", placeholder()), rec.ID).Scan(&existing)
		if err == nil {
			db.logf("machine %s already present, skipped", rec.ID)
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return inserted, fmt.Errorf("read machine %s: %w", rec.ID, err)
		}

		placeholder = newPlaceholderGenerator(db.Driver)
		ph := make([]any, 10)
		for i := range ph {
			ph[i] = placeholder()
		}
		insert := fmt.Sprintf(`INSERT INTO machines (id, seq, name, model, serial_number, manufacture_year,
operator_name, lat, lng, status) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`, ph...)
		seq++
		if _, err := db.DB.ExecContext(ctx, insert, rec.ID, seq, rec.Name, rec.Model, rec.SerialNumber,
			rec.ManufactureYear, rec.OperatorName, rec.Position.Lat, rec.Position.Lng, string(rec.Status)); err != nil {
			return inserted, fmt.Errorf("insert machine %s: %w", rec.ID, err)
		}
		inserted++
	}
	return inserted, nil
}
