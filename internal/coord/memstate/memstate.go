// Package memstate is an in-process coord.SharedState for tests and
// single-host sweeps.
package memstate

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/gammazero/deque"

	"github.com/banshee-data/sweep-logger/internal/coord"
)

// State is a mutex-guarded map of registers and lists.
type State struct {
	mu     sync.Mutex
	values map[string]string
	lists  map[string]*deque.Deque[string]
	down   error
}

// New returns an empty State.
func New() *State {
	return &State{
		values: make(map[string]string),
		lists:  make(map[string]*deque.Deque[string]),
	}
}

// SetUnavailable makes every following call fail with err wrapped in
// coord.ErrCoordinationUnavailable. Pass nil to restore service.
func (s *State) SetUnavailable(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = err
}

func (s *State) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.down != nil {
		return fmt.Errorf("%w: %w", coord.ErrCoordinationUnavailable, s.down)
	}
	return nil
}

func (s *State) DecrIfExists(ctx context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return 0, false, err
	}
	v, ok := s.values[key]
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("key %q is not an integer: %w", key, err)
	}
	n--
	s.values[key] = strconv.FormatInt(n, 10)
	return n, true, nil
}

func (s *State) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return "", false, err
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *State) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.values[key] = value
	return nil
}

func (s *State) PushList(ctx context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	q, ok := s.lists[key]
	if !ok {
		q = new(deque.Deque[string])
		s.lists[key] = q
	}
	for _, v := range values {
		q.PushBack(v)
	}
	return nil
}

func (s *State) PopList(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return "", false, err
	}
	q, ok := s.lists[key]
	if !ok || q.Len() == 0 {
		return "", false, nil
	}
	v := q.PopFront()
	if q.Len() == 0 {
		delete(s.lists, key)
	}
	return v, true, nil
}

func (s *State) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	for _, k := range keys {
		delete(s.values, k)
		delete(s.lists, k)
	}
	return nil
}

var _ coord.SharedState = (*State)(nil)
