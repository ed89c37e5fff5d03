package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-idp/agentcore/checkpoint"
)

func TestStoreGetMissingReturnsNotFound(t *testing.T) {
	s := New()
	_, err := s.GetState(context.Background(), "thread-1")
	require.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestStoreUpdateThenGetRoundTrips(t *testing.T) {
	s := New()
	want := checkpoint.State{ThreadID: "thread-1", Version: 2, Data: map[string]any{"step": float64(3)}}
	require.NoError(t, s.UpdateState(context.Background(), want))

	got, err := s.GetState(context.Background(), "thread-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStoreUpdateReplacesPriorState(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.UpdateState(ctx, checkpoint.State{ThreadID: "t", Version: 1}))
	require.NoError(t, s.UpdateState(ctx, checkpoint.State{ThreadID: "t", Version: 2}))

	got, err := s.GetState(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
}

func TestStoreDeleteRemovesState(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.UpdateState(ctx, checkpoint.State{ThreadID: "t"}))
	require.NoError(t, s.Delete(ctx, "t"))

	_, err := s.GetState(ctx, "t")
	require.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestStoreDeleteMissingIsNotAnError(t *testing.T) {
	s := New()
	assert.NoError(t, s.Delete(context.Background(), "nonexistent"))
}
