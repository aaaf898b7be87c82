// Package coord coordinates sweep workers through a shared key-value store:
// each worker claims a unique rank, waits for the sweep id to be published,
// and asks the metadata service whether another run may start.
package coord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/banshee-data/sweep-logger/internal/monitoring"
	"github.com/banshee-data/sweep-logger/internal/timeutil"
)

// Well-known keys in the shared store.
const (
	RankCounterKey = "rank-counter"
	SweepIDKey     = "sweep_id"
	FreeRanksKey   = "free-ranks"
)

// RemainingRunsField is the sweep field decremented once per launched run.
const RemainingRunsField = "remaining_runs"

// DefaultPollInterval is how often AcquireRank and AwaitSweepID retry.
const DefaultPollInterval = 100 * time.Millisecond

var (
	// ErrCoordinationUnavailable wraps every failure to reach the shared store.
	ErrCoordinationUnavailable = errors.New("coordination store unavailable")
	// ErrRanksExhausted is returned when more workers claim ranks than were
	// initialised.
	ErrRanksExhausted = errors.New("rank counter exhausted")
)

// SharedState is the set of atomic primitives the coordinator needs from the
// external store. Implementations wrap transport failures in
// ErrCoordinationUnavailable.
type SharedState interface {
	// DecrIfExists atomically decrements key and returns the new value. It
	// reports false, and creates nothing, when key is absent.
	DecrIfExists(ctx context.Context, key string) (int64, bool, error)
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	PushList(ctx context.Context, key string, values ...string) error
	PopList(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// RunCounter applies an atomic increment to a numeric sweep field, returning
// the new value or nil when the field is null.
type RunCounter interface {
	IncrementSweep(ctx context.Context, sweepID int64, field string, delta int64) (*int64, error)
}

// Coordinator hands out worker ranks and relays the sweep id.
type Coordinator struct {
	state SharedState
	runs  RunCounter

	// Clock drives polling; defaults to timeutil.RealClock.
	Clock timeutil.Clock
	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration
	// Prefix namespaces every key, so several sweeps can share one store.
	Prefix string
}

// NewCoordinator returns a Coordinator over state. runs may be nil when
// ShouldContinue is not used.
func NewCoordinator(state SharedState, runs RunCounter) *Coordinator {
	return &Coordinator{
		state:        state,
		runs:         runs,
		Clock:        timeutil.RealClock{},
		PollInterval: DefaultPollInterval,
	}
}

func (c *Coordinator) key(name string) string {
	return c.Prefix + name
}

func (c *Coordinator) wait(ctx context.Context) error {
	clock := c.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	d := c.PollInterval
	if d <= 0 {
		d = DefaultPollInterval
	}
	return clock.Wait(ctx, d)
}

// InitRanks prepares the counter so that workers claims yield 0..workers-1.
func (c *Coordinator) InitRanks(ctx context.Context, workers int) error {
	if workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", workers)
	}
	if err := c.state.Delete(ctx, c.key(FreeRanksKey)); err != nil {
		return fmt.Errorf("clear free ranks: %w", err)
	}
	if err := c.state.Set(ctx, c.key(RankCounterKey), strconv.Itoa(workers-1)); err != nil {
		return fmt.Errorf("init rank counter: %w", err)
	}
	return nil
}

// AcquireRank claims a rank unique among concurrent callers. A rank released
// by an earlier worker is reused first. While the counter has not been
// initialised the call polls; an absent counter is never treated as zero.
func (c *Coordinator) AcquireRank(ctx context.Context) (int, error) {
	for {
		v, ok, err := c.state.PopList(ctx, c.key(FreeRanksKey))
		if err != nil {
			return -1, fmt.Errorf("acquire rank: %w", err)
		}
		if ok {
			rank, err := strconv.Atoi(v)
			if err == nil && rank >= 0 {
				return rank, nil
			}
			monitoring.Warnf("discarding malformed free rank %q", v)
			continue
		}

		n, ok, err := c.state.DecrIfExists(ctx, c.key(RankCounterKey))
		if err != nil {
			return -1, fmt.Errorf("acquire rank: %w", err)
		}
		if ok {
			rank := int(n) + 1
			if rank < 0 {
				return -1, ErrRanksExhausted
			}
			return rank, nil
		}

		monitoring.Debugf("rank counter %q not set yet, waiting", c.key(RankCounterKey))
		if err := c.wait(ctx); err != nil {
			return -1, err
		}
	}
}

// ReleaseRank returns rank to the pool for the next worker.
func (c *Coordinator) ReleaseRank(ctx context.Context, rank int) error {
	if err := c.state.PushList(ctx, c.key(FreeRanksKey), strconv.Itoa(rank)); err != nil {
		return fmt.Errorf("release rank %d: %w", rank, err)
	}
	return nil
}

// PublishSweepID stores id in the sweep id register.
func (c *Coordinator) PublishSweepID(ctx context.Context, id int64) error {
	if err := c.state.Set(ctx, c.key(SweepIDKey), strconv.FormatInt(id, 10)); err != nil {
		return fmt.Errorf("publish sweep id: %w", err)
	}
	return nil
}

// AwaitSweepID polls the sweep id register until it holds a value.
func (c *Coordinator) AwaitSweepID(ctx context.Context) (int64, error) {
	for {
		v, ok, err := c.state.Get(ctx, c.key(SweepIDKey))
		if err != nil {
			return 0, fmt.Errorf("await sweep id: %w", err)
		}
		if ok {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("sweep id register holds %q: %w", v, err)
			}
			return id, nil
		}
		if err := c.wait(ctx); err != nil {
			return 0, err
		}
	}
}

// ShouldContinue consumes one run from the sweep's remaining_runs. It reports
// true when the sweep has no ceiling or the ceiling was not yet exhausted, so
// a ceiling of N admits exactly N runs.
func (c *Coordinator) ShouldContinue(ctx context.Context, sweepID int64) (bool, error) {
	if c.runs == nil {
		return false, errors.New("coordinator has no run counter")
	}
	v, err := c.runs.IncrementSweep(ctx, sweepID, RemainingRunsField, -1)
	if err != nil {
		return false, fmt.Errorf("decrement remaining runs: %w", err)
	}
	if v == nil {
		return true, nil
	}
	return *v >= 0, nil
}
