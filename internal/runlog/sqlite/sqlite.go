// Package sqlite implements runlog.Logger on a local SQLite database, for
// sweeps that run on one host without a metadata service.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/sweep-logger/internal/db"
	"github.com/banshee-data/sweep-logger/internal/monitoring"
	"github.com/banshee-data/sweep-logger/internal/runlog"
	"github.com/banshee-data/sweep-logger/internal/sweep"
	"github.com/banshee-data/sweep-logger/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations returns the embedded schema migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Logger stores sweeps and runs in SQLite.
type Logger struct {
	db    *db.DB
	clock timeutil.Clock
}

// Open opens the database at path and brings its schema up to date.
func Open(path string) (*Logger, error) {
	d, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := migrate(d, path); err != nil {
		d.Close()
		return nil, err
	}
	return &Logger{db: d, clock: timeutil.RealClock{}}, nil
}

// migrate refuses a schema left dirty by an interrupted migration, then
// brings it up to date.
func migrate(d *db.DB, path string) error {
	v, dirty, err := d.MigrateVersion(Migrations())
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("%s: schema version %d is dirty", path, v)
	}
	if err := d.MigrateUp(Migrations()); err != nil {
		return err
	}
	monitoring.Debugf("sqlite run log %s ready (schema was at version %d)", path, v)
	return nil
}

// SetClock overrides the clock used for created_at timestamps.
func (l *Logger) SetClock(c timeutil.Clock) {
	l.clock = c
}

func (l *Logger) now() string {
	return l.clock.Now().UTC().Format(time.RFC3339Nano)
}

func (l *Logger) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return db.RetryOnBusy(func() error {
		tx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// CreateSweep inserts the sweep and its parameter choices in one transaction.
func (l *Logger) CreateSweep(ctx context.Context, req runlog.CreateSweepRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	metadata, err := marshalObject(req.Metadata)
	if err != nil {
		return 0, fmt.Errorf("encoding sweep metadata: %w", err)
	}
	choices := make([]string, len(req.Choices))
	for i, c := range req.Choices {
		b, err := json.Marshal(c.Choice)
		if err != nil {
			return 0, fmt.Errorf("encoding parameter %q: %w", c.Key, err)
		}
		choices[i] = string(b)
	}

	var id int64
	err = l.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO sweep (uuid, method, metadata, grid_index, remaining_runs, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(),
			req.Method.String(),
			metadata,
			req.InitialGridIndex(),
			req.RemainingRuns,
			l.now(),
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		for i, c := range req.Choices {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO parameter_choices (sweep_id, position, key, choice) VALUES (?, ?, ?, ?)`,
				id, i, c.Key, choices[i],
			); err != nil {
				return fmt.Errorf("parameter %q: %w", c.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", runlog.ErrRegistrar, err)
	}
	return id, nil
}

// IncrementSweep adds delta to field in a single UPDATE ... RETURNING. A null
// field stays null.
func (l *Logger) IncrementSweep(ctx context.Context, sweepID int64, field string, delta int64) (*int64, error) {
	if err := runlog.ValidateField(field); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`UPDATE sweep SET %[1]s = %[1]s + ? WHERE id = ? RETURNING %[1]s`, field)

	var v sql.NullInt64
	err := db.RetryOnBusy(func() error {
		return l.db.QueryRowContext(ctx, query, delta, sweepID).Scan(&v)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sweep %d: %w", sweepID, runlog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("incrementing %s on sweep %d: %w", field, sweepID, err)
	}
	if !v.Valid {
		return nil, nil
	}
	return &v.Int64, nil
}

// CreateRun inserts a run and, for a sweep run, advances the sweep's
// grid_index in the same transaction.
func (l *Logger) CreateRun(ctx context.Context, req runlog.CreateRunRequest) (runlog.Run, error) {
	metadata, err := marshalObject(req.Metadata)
	if err != nil {
		return runlog.Run{}, fmt.Errorf("encoding run metadata: %w", err)
	}

	var run runlog.Run
	err = l.inTx(ctx, func(tx *sql.Tx) error {
		run = runlog.Run{}
		if req.SweepID != nil {
			rs, err := claimGridIndex(ctx, tx, *req.SweepID)
			if err != nil {
				return err
			}
			run.Sweep = rs
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO run (sweep_id, metadata, created_at) VALUES (?, ?, ?)`,
			req.SweepID, metadata, l.now(),
		)
		if err != nil {
			return err
		}
		if run.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		for i, c := range req.Charts {
			if !json.Valid(c) {
				return fmt.Errorf("chart %d is not valid JSON", i)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO chart (run_id, spec) VALUES (?, ?)`, run.ID, string(c),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return runlog.Run{}, fmt.Errorf("creating run: %w", err)
	}
	return run, nil
}

func claimGridIndex(ctx context.Context, tx *sql.Tx, sweepID int64) (*runlog.RunSweep, error) {
	var (
		method    string
		gridIndex sql.NullInt64
	)
	err := tx.QueryRowContext(ctx,
		`UPDATE sweep SET grid_index = grid_index + 1 WHERE id = ? RETURNING method, grid_index`,
		sweepID,
	).Scan(&method, &gridIndex)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sweep %d: %w", sweepID, runlog.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rs := &runlog.RunSweep{ID: sweepID}
	if rs.Method, err = sweep.ParseSweepMethod(method); err != nil {
		return nil, err
	}
	if gridIndex.Valid {
		rs.GridIndex = &gridIndex.Int64
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT key, choice FROM parameter_choices WHERE sweep_id = ? ORDER BY position`, sweepID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var key, choice string
		if err := rows.Scan(&key, &choice); err != nil {
			return nil, err
		}
		spec, err := sweep.DecodeJSON([]byte(choice))
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		rs.Choices = append(rs.Choices, sweep.ParamChoice{Key: key, Choice: spec})
	}
	return rs, rows.Err()
}

// UpdateMetadata merges patch into the run's metadata with json_patch.
func (l *Logger) UpdateMetadata(ctx context.Context, runID int64, patch map[string]any) error {
	b, err := marshalObject(patch)
	if err != nil {
		return fmt.Errorf("encoding metadata patch: %w", err)
	}
	var n int64
	err = db.RetryOnBusy(func() error {
		res, err := l.db.ExecContext(ctx,
			`UPDATE run SET metadata = json_patch(metadata, ?) WHERE id = ?`, b, runID)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("updating metadata for run %d: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("run %d: %w", runID, runlog.ErrNotFound)
	}
	return nil
}

// RunParameters returns metadata.parameters of a run.
func (l *Logger) RunParameters(ctx context.Context, runID int64) (map[string]any, error) {
	var raw sql.NullString
	err := l.db.QueryRowContext(ctx,
		`SELECT json_extract(metadata, '$.parameters') FROM run WHERE id = ?`, runID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", runID, runlog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading parameters for run %d: %w", runID, err)
	}
	if !raw.Valid {
		return nil, nil
	}
	return runlog.DecodeParameters([]byte(raw.String))
}

// Close closes the database.
func (l *Logger) Close() error {
	return l.db.Close()
}

func marshalObject(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

var _ runlog.Logger = (*Logger)(nil)
