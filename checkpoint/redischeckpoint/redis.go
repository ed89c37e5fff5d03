// Package redischeckpoint provides a Redis-backed checkpoint.Store, durable
// across process restarts and shared across a multi-node deployment.
package redischeckpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aws-idp/agentcore/checkpoint"
)

const keyPrefix = "agentcore:checkpoint:"

// Client is the subset of *redis.Client used by Store, defined here so
// callers can substitute a mock in tests without pulling in a real Redis
// connection.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store persists checkpoints as JSON-encoded Redis string values.
type Store struct {
	client Client
	ttl    time.Duration
}

// Option configures a Store at construction.
type Option func(*Store)

// WithTTL sets an expiration on every stored checkpoint; zero (the default)
// means checkpoints never expire on their own.
func WithTTL(d time.Duration) Option { return func(s *Store) { s.ttl = d } }

// New constructs a Store backed by client.
func New(client Client, opts ...Option) *Store {
	s := &Store{client: client}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
	return s
}

var _ checkpoint.Store = (*Store)(nil)

// GetState implements checkpoint.Store.
func (s *Store) GetState(ctx context.Context, threadID string) (checkpoint.State, error) {
	val, err := s.client.Get(ctx, key(threadID)).Result()
	if err == redis.Nil {
		return checkpoint.State{}, checkpoint.ErrNotFound
	}
	if err != nil {
		return checkpoint.State{}, fmt.Errorf("get checkpoint %q: %w", threadID, err)
	}
	var state checkpoint.State
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return checkpoint.State{}, fmt.Errorf("unmarshal checkpoint %q: %w", threadID, err)
	}
	return state, nil
}

// UpdateState implements checkpoint.Store.
func (s *Store) UpdateState(ctx context.Context, state checkpoint.State) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal checkpoint %q: %w", state.ThreadID, err)
	}
	if err := s.client.Set(ctx, key(state.ThreadID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("set checkpoint %q: %w", state.ThreadID, err)
	}
	return nil
}

// Delete implements checkpoint.Store.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	if err := s.client.Del(ctx, key(threadID)).Err(); err != nil {
		return fmt.Errorf("delete checkpoint %q: %w", threadID, err)
	}
	return nil
}

func key(threadID string) string { return keyPrefix + threadID }
