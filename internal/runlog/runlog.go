// Package runlog defines the logging/metadata service that records sweeps and
// runs. Backends live in the hasura and sqlite subpackages.
package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/banshee-data/sweep-logger/internal/sweep"
)

// Numeric sweep fields that IncrementSweep may change.
const (
	FieldGridIndex     = "grid_index"
	FieldRemainingRuns = "remaining_runs"
	FieldRunCount      = "run_count"
)

var (
	// ErrRegistrar marks a create-sweep call the service rejected.
	ErrRegistrar = errors.New("sweep registration rejected")
	// ErrNotFound is returned when a sweep or run does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownField is returned for sweep fields outside the allowlist.
	ErrUnknownField = errors.New("unknown sweep field")
)

// ValidateField checks field against the numeric sweep fields.
func ValidateField(field string) error {
	switch field {
	case FieldGridIndex, FieldRemainingRuns, FieldRunCount:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownField, field)
}

// CreateSweepRequest describes a new sweep.
type CreateSweepRequest struct {
	Method   sweep.SweepMethod
	Metadata map[string]any
	Choices  []sweep.ParamChoice
	// RemainingRuns caps the number of runs; nil means unlimited.
	RemainingRuns *int
}

// Validate rejects requests the service would refuse.
func (r CreateSweepRequest) Validate() error {
	if r.Method != sweep.Grid && r.Method != sweep.Random {
		return fmt.Errorf("%w: %v", sweep.ErrInvalidMethod, r.Method)
	}
	_, err := sweep.ChoicesToSpec(r.Choices)
	return err
}

// InitialGridIndex is the grid_index a new sweep starts with: 0 for grid
// sweeps, null for random ones.
func (r CreateSweepRequest) InitialGridIndex() *int64 {
	if r.Method != sweep.Grid {
		return nil
	}
	var zero int64
	return &zero
}

// CreateRunRequest describes a new run. SweepID is nil for a standalone run.
type CreateRunRequest struct {
	SweepID  *int64
	Metadata map[string]any
	Charts   []json.RawMessage
}

// Run is a created run, with its sweep when it belongs to one.
type Run struct {
	ID    int64
	Sweep *RunSweep
}

// RunSweep is the sweep state a run was created against.
type RunSweep struct {
	ID      int64
	Method  sweep.SweepMethod
	Choices []sweep.ParamChoice
	// GridIndex is the sweep's grid_index after this run's increment, or nil
	// for random sweeps.
	GridIndex *int64
}

// Params resolves the run's parameters: the grid combination claimed by this
// run in grid mode, or a fresh random draw otherwise.
func (s *RunSweep) Params(rng *rand.Rand) (any, error) {
	spec, err := sweep.ChoicesToSpec(s.Choices)
	if err != nil {
		return nil, err
	}
	switch s.Method {
	case sweep.Grid:
		if s.GridIndex == nil {
			return nil, fmt.Errorf("grid sweep %d has no grid index", s.ID)
		}
		return sweep.GridAt(spec, int(*s.GridIndex-1))
	case sweep.Random:
		return sweep.SampleRandom(spec, rng)
	}
	return nil, fmt.Errorf("%w: %v", sweep.ErrInvalidMethod, s.Method)
}

// Logger is the logging/metadata service.
type Logger interface {
	// CreateSweep records a sweep and returns its id.
	CreateSweep(ctx context.Context, req CreateSweepRequest) (int64, error)
	// IncrementSweep atomically adds delta to a numeric sweep field and
	// returns the new value, or nil when the field is null.
	IncrementSweep(ctx context.Context, sweepID int64, field string, delta int64) (*int64, error)
	// CreateRun inserts a run. When the run joins a sweep the sweep's
	// grid_index is incremented in the same operation.
	CreateRun(ctx context.Context, req CreateRunRequest) (Run, error)
	// UpdateMetadata merges patch into the run's metadata.
	UpdateMetadata(ctx context.Context, runID int64, patch map[string]any) error
	// RunParameters returns the "parameters" entry of a run's metadata.
	RunParameters(ctx context.Context, runID int64) (map[string]any, error)
	Close() error
}

// DecodeParameters reads a stored parameters document. JSON null or empty
// input gives nil.
func DecodeParameters(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	spec, err := sweep.DecodeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding parameters: %w", err)
	}
	switch doc := sweep.ToDocument(spec).(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return doc, nil
	}
	return nil, fmt.Errorf("parameters must be an object, got %s", raw)
}
