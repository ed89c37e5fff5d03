package redischeckpoint

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-idp/agentcore/checkpoint"
)

// fakeClient is an in-memory double for Client, avoiding a real Redis
// dependency in unit tests.
type fakeClient struct {
	values map[string]string
}

func newFakeClient() *fakeClient { return &fakeClient{values: make(map[string]string)} }

func (f *fakeClient) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	if v, ok := f.values[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (f *fakeClient) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key)
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "del")
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestRedisStoreGetMissingReturnsNotFound(t *testing.T) {
	s := New(newFakeClient())
	_, err := s.GetState(context.Background(), "thread-1")
	require.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestRedisStoreUpdateThenGetRoundTrips(t *testing.T) {
	s := New(newFakeClient())
	want := checkpoint.State{ThreadID: "thread-1", Version: 5, Data: map[string]any{"phase": "observe"}}
	require.NoError(t, s.UpdateState(context.Background(), want))

	got, err := s.GetState(context.Background(), "thread-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRedisStoreDeleteRemovesState(t *testing.T) {
	s := New(newFakeClient())
	ctx := context.Background()
	require.NoError(t, s.UpdateState(ctx, checkpoint.State{ThreadID: "t"}))
	require.NoError(t, s.Delete(ctx, "t"))

	_, err := s.GetState(ctx, "t")
	require.ErrorIs(t, err, checkpoint.ErrNotFound)
}
