// Package worker runs the execute-sweep loop on one device.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/sweep-logger/internal/coord"
	"github.com/banshee-data/sweep-logger/internal/monitoring"
	"github.com/banshee-data/sweep-logger/internal/procexec"
	"github.com/banshee-data/sweep-logger/internal/timeutil"
)

const (
	// DefaultDeviceEnv receives the worker's rank.
	DefaultDeviceEnv = "CUDA_VISIBLE_DEVICES"
	// DefaultBackoff is the pause between runs.
	DefaultBackoff = 10 * time.Second
)

// Options configures Execute.
type Options struct {
	// Command is split on whitespace; the sweep id is appended as the last
	// argument.
	Command     string
	Coordinator *coord.Coordinator

	// Optional; defaults are applied by Execute.
	Commands  procexec.CommandBuilder
	Clock     timeutil.Clock
	Backoff   time.Duration
	DeviceEnv string
	Environ   []string
	Stdout    io.Writer
	Stderr    io.Writer
}

// Result summarises a finished worker.
type Result struct {
	WorkerID string
	Rank     int
	SweepID  int64
	Runs     int
	Failed   int
}

// Execute claims a rank, waits for the sweep id and runs the command until
// the sweep's run ceiling is reached. A failing command is logged and the
// loop continues; coordination errors end it.
func Execute(ctx context.Context, opts Options) (Result, error) {
	args := strings.Fields(opts.Command)
	if len(args) == 0 {
		return Result{}, errors.New("worker: empty command")
	}
	if opts.Coordinator == nil {
		return Result{}, errors.New("worker: no coordinator")
	}
	opts.setDefaults()

	res := Result{WorkerID: uuid.NewString()}
	rank, err := opts.Coordinator.AcquireRank(ctx)
	if err != nil {
		return res, err
	}
	res.Rank = rank
	monitoring.Logf("worker %s: rank == %d", res.WorkerID, rank)
	defer func() {
		// The worker's own context may already be cancelled.
		if err := opts.Coordinator.ReleaseRank(context.WithoutCancel(ctx), rank); err != nil {
			monitoring.Warnf("worker %s: %v", res.WorkerID, err)
		}
	}()

	if res.SweepID, err = opts.Coordinator.AwaitSweepID(ctx); err != nil {
		return res, err
	}
	monitoring.Logf("worker %s: sweep_id == %d", res.WorkerID, res.SweepID)

	env := append(append([]string(nil), opts.Environ...), opts.DeviceEnv+"="+strconv.Itoa(rank))
	argv := append(args[1:len(args):len(args)], strconv.FormatInt(res.SweepID, 10))

	for {
		ok, err := opts.Coordinator.ShouldContinue(ctx, res.SweepID)
		if err != nil {
			return res, err
		}
		if !ok {
			monitoring.Logf("worker %s: sweep %d has no runs left after %d", res.WorkerID, res.SweepID, res.Runs)
			return res, nil
		}

		monitoring.Logf("%s %s", args[0], strings.Join(argv, " "))
		cmd := opts.Commands.BuildCommand(ctx, args[0], argv...)
		cmd.SetEnv(env)
		cmd.SetOutput(opts.Stdout, opts.Stderr)
		res.Runs++
		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed++
			monitoring.Errorf("worker %s: run %d failed: %v", res.WorkerID, res.Runs, err)
		}

		if err := opts.Clock.Wait(ctx, opts.Backoff); err != nil {
			return res, fmt.Errorf("worker %s: %w", res.WorkerID, err)
		}
	}
}

func (o *Options) setDefaults() {
	if o.Commands == nil {
		o.Commands = procexec.NewRealCommandBuilder()
	}
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultBackoff
	}
	if o.DeviceEnv == "" {
		o.DeviceEnv = DefaultDeviceEnv
	}
	if o.Environ == nil {
		o.Environ = os.Environ()
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// ExecuteN runs n workers in this process, one per device. The first worker
// to fail cancels the others.
func ExecuteN(ctx context.Context, n int, opts Options) ([]Result, error) {
	if n < 1 {
		return nil, fmt.Errorf("worker: need at least one worker, got %d", n)
	}
	results := make([]Result, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := range n {
		g.Go(func() error {
			var err error
			results[i], err = Execute(gctx, opts)
			return err
		})
	}
	return results, g.Wait()
}
