// Package trial resolves the parameters of a single run: its sweep draw,
// parameters loaded from an earlier run and a fixed parameter file.
package trial

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math/rand/v2"

	"github.com/banshee-data/sweep-logger/internal/config"
	"github.com/banshee-data/sweep-logger/internal/fsutil"
	"github.com/banshee-data/sweep-logger/internal/runlog"
)

// Options configures Initialize.
type Options struct {
	// Params are the caller's defaults. A "name" entry is moved to the run's
	// metadata.
	Params map[string]any
	// LoadID copies the parameters of an earlier run.
	LoadID *int64
	// CreateRun creates a run, joined to SweepID when set.
	CreateRun bool
	SweepID   *int64
	Charts    []json.RawMessage
	// ConfigPath names a YAML mapping of parameters applied last.
	ConfigPath string
	FS         fsutil.FileSystem
	// Metadata is merged into the run's metadata after the parameters.
	Metadata map[string]any
	Rand     *rand.Rand
}

// Trial is an initialized run.
type Trial struct {
	Params map[string]any
	Name   any
	// Run is nil unless a run was created.
	Run *runlog.Run
}

// Initialize merges parameters from, in increasing precedence, the caller,
// a loaded run, the sweep and the config file, and records them on the new
// run.
func Initialize(ctx context.Context, logger runlog.Logger, opts Options) (*Trial, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}

	var configParams map[string]any
	if opts.ConfigPath != "" {
		var err error
		if configParams, err = config.LoadParams(fsys, opts.ConfigPath); err != nil {
			return nil, err
		}
	}

	t := &Trial{}
	var sweepParams map[string]any
	if opts.CreateRun {
		run, err := logger.CreateRun(ctx, runlog.CreateRunRequest{
			SweepID:  opts.SweepID,
			Metadata: map[string]any{},
			Charts:   opts.Charts,
		})
		if err != nil {
			return nil, err
		}
		t.Run = &run
		if run.Sweep != nil {
			if sweepParams, err = resolveSweep(run.Sweep, opts.Rand); err != nil {
				return nil, err
			}
		}
	}

	var loadParams map[string]any
	if opts.LoadID != nil {
		var err error
		if loadParams, err = logger.RunParameters(ctx, *opts.LoadID); err != nil {
			return nil, fmt.Errorf("loading parameters of run %d: %w", *opts.LoadID, err)
		}
	}

	params := maps.Clone(opts.Params)
	if params == nil {
		params = map[string]any{}
	}
	t.Name = params["name"]
	delete(params, "name")
	for _, p := range []map[string]any{loadParams, sweepParams, configParams} {
		maps.Copy(params, p)
	}
	t.Params = params

	if t.Run == nil {
		return t, nil
	}
	if err := logger.UpdateMetadata(ctx, t.Run.ID, map[string]any{
		"parameters": params,
		"run_id":     t.Run.ID,
		"name":       t.Name,
	}); err != nil {
		return nil, err
	}
	if len(opts.Metadata) > 0 {
		if err := logger.UpdateMetadata(ctx, t.Run.ID, opts.Metadata); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func resolveSweep(s *runlog.RunSweep, rng *rand.Rand) (map[string]any, error) {
	resolved, err := s.Params(rng)
	if err != nil {
		return nil, fmt.Errorf("resolving parameters of sweep %d: %w", s.ID, err)
	}
	m, ok := resolved.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("sweep %d resolved to %T, not a parameter mapping", s.ID, resolved)
	}
	return m, nil
}
