// Package redisstate implements coord.SharedState on Redis.
package redisstate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/banshee-data/sweep-logger/internal/coord"
)

// Defaults for the shared store address.
const (
	DefaultHost = "redis"
	DefaultPort = 6379
)

// decrIfExists never creates the key, unlike a bare DECR.
var decrIfExists = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("DECR", KEYS[1])
end
return false
`)

// State is a coord.SharedState backed by a Redis client.
type State struct {
	client redis.UniversalClient
}

// New wraps an existing client.
func New(client redis.UniversalClient) *State {
	return &State{client: client}
}

// Dial connects to host:port and verifies the connection with PING.
func Dial(ctx context.Context, host string, port int) (*State, error) {
	client := redis.NewClient(&redis.Options{
		Addr: net.JoinHostPort(host, strconv.Itoa(port)),
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, unavailable(err)
	}
	return New(client), nil
}

// Close closes the underlying client.
func (s *State) Close() error {
	return s.client.Close()
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", coord.ErrCoordinationUnavailable, err)
}

func (s *State) DecrIfExists(ctx context.Context, key string) (int64, bool, error) {
	n, err := decrIfExists.Run(ctx, s.client, []string{key}).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, unavailable(err)
	}
	return n, true, nil
}

func (s *State) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable(err)
	}
	return v, true, nil
}

func (s *State) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *State) PushList(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := s.client.RPush(ctx, key, args...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *State) PopList(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.LPop(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable(err)
	}
	return v, true, nil
}

func (s *State) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

var _ coord.SharedState = (*State)(nil)
