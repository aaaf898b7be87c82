package timeutil

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRealClock_WaitElapses(t *testing.T) {
	start := time.Now()
	if err := (RealClock{}).Wait(context.Background(), 5*time.Millisecond); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Error("Wait returned early")
	}
}

func TestRealClock_WaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := (RealClock{}).Wait(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestMockClock_Wait(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(base)

	var calls []int
	clock.OnWait = func(n int) { calls = append(calls, n) }

	for i := 0; i < 3; i++ {
		if err := clock.Wait(context.Background(), 100*time.Millisecond); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}

	if got := clock.Now(); !got.Equal(base.Add(300 * time.Millisecond)) {
		t.Errorf("Now() = %v", got)
	}
	if len(clock.Waits()) != 3 {
		t.Errorf("recorded %d waits, want 3", len(clock.Waits()))
	}
	if len(calls) != 3 || calls[2] != 3 {
		t.Errorf("OnWait calls = %v", calls)
	}
}

func TestMockClock_WaitHookCancels(t *testing.T) {
	clock := NewMockClock(time.Time{})
	ctx, cancel := context.WithCancel(context.Background())
	clock.OnWait = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	if err := clock.Wait(ctx, time.Second); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if err := clock.Wait(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("second wait = %v, want context.Canceled", err)
	}
	if err := clock.Wait(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("third wait = %v, want context.Canceled", err)
	}
	if len(clock.Waits()) != 2 {
		t.Errorf("waits after cancel = %d, want 2", len(clock.Waits()))
	}
}

func TestMockClock_SetAdvance(t *testing.T) {
	clock := NewMockClock(time.Time{})
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock.Set(at)
	clock.Advance(time.Minute)
	if !clock.Now().Equal(at.Add(time.Minute)) {
		t.Errorf("Now() = %v", clock.Now())
	}
}
