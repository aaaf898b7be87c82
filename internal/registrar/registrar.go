// Package registrar creates sweep records from a configuration file.
package registrar

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/sweep-logger/internal/config"
	"github.com/banshee-data/sweep-logger/internal/coord"
	"github.com/banshee-data/sweep-logger/internal/fsutil"
	"github.com/banshee-data/sweep-logger/internal/monitoring"
	"github.com/banshee-data/sweep-logger/internal/repro"
	"github.com/banshee-data/sweep-logger/internal/runlog"
	"github.com/banshee-data/sweep-logger/internal/sweep"
	"github.com/banshee-data/sweep-logger/internal/version"
)

// ReproCollector supplies reproducibility metadata.
type ReproCollector interface {
	Collect(ctx context.Context) repro.Info
}

// Options configures Register.
type Options struct {
	ConfigPath string
	// FS defaults to the OS filesystem.
	FS     fsutil.FileSystem
	Method sweep.SweepMethod
	// Name and Project are recorded in metadata when non-empty.
	Name    string
	Project string
	// RemainingRuns caps the number of runs. Nil means unlimited for random
	// sweeps and the number of grid combinations for grid sweeps.
	RemainingRuns *int

	Logger runlog.Logger
	// Repro is optional.
	Repro ReproCollector

	// Coordinator, when set, receives the new sweep id.
	Coordinator *coord.Coordinator
	// Workers initializes the rank counter when positive.
	Workers int
}

// Register loads the configuration and creates a sweep for it. It returns the
// new sweep id.
func Register(ctx context.Context, opts Options) (int64, error) {
	if opts.Logger == nil {
		return 0, errors.New("registrar: no logger")
	}
	fsys := opts.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultConfigPath
	}

	cfg, err := config.LoadSweepConfig(fsys, path)
	if err != nil {
		return 0, err
	}

	if g, ok := cfg.Spec.(sweep.Group); ok {
		monitoring.Debugf("sweep parameters: %s", strings.Join(g.Keys(), ", "))
	}

	metadata := map[string]any{"config": cfg.Document}
	if opts.Repro != nil {
		for k, v := range opts.Repro.Collect(ctx).Map() {
			metadata[k] = v
		}
	}
	if opts.Name != "" {
		metadata["name"] = opts.Name
	}
	if opts.Project != "" {
		metadata["project"] = opts.Project
	}
	metadata["version"] = version.Version

	remaining := opts.RemainingRuns
	if remaining == nil && opts.Method == sweep.Grid {
		n := sweep.CountCombinations(cfg.Spec)
		remaining = &n
	}

	id, err := opts.Logger.CreateSweep(ctx, runlog.CreateSweepRequest{
		Method:        opts.Method,
		Metadata:      metadata,
		Choices:       sweep.Choices(cfg.Spec),
		RemainingRuns: remaining,
	})
	if err != nil {
		return 0, err
	}
	monitoring.Logf("Sweep ID: %d", id)

	if opts.Coordinator == nil {
		return id, nil
	}
	if opts.Workers > 0 {
		if err := opts.Coordinator.InitRanks(ctx, opts.Workers); err != nil {
			return id, fmt.Errorf("initializing ranks for sweep %d: %w", id, err)
		}
	}
	if err := opts.Coordinator.PublishSweepID(ctx, id); err != nil {
		return id, fmt.Errorf("publishing sweep %d: %w", id, err)
	}
	return id, nil
}
