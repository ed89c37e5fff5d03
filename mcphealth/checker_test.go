package mcphealth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-idp/agentcore/tools"
)

type fakeAggregator struct {
	specs []tools.ToolSpec
	err   error
}

func (f *fakeAggregator) ListTools(context.Context) ([]tools.ToolSpec, error) {
	return f.specs, f.err
}

func TestCheckerStartsUnknownAndUnhealthy(t *testing.T) {
	c := New(&fakeAggregator{})
	assert.False(t, c.IsHealthy())
}

func TestCheckerForceCheckHealthyWithTools(t *testing.T) {
	c := New(&fakeAggregator{specs: []tools.ToolSpec{{Name: "search"}}})
	h := c.ForceCheck(context.Background())
	require.True(t, h.Healthy)
	assert.Equal(t, 1, h.ToolCount)
	assert.True(t, c.IsHealthy())
	assert.Len(t, c.ToolsAvailable(), 1)
}

func TestCheckerForceCheckUnhealthyOnZeroTools(t *testing.T) {
	c := New(&fakeAggregator{specs: nil})
	h := c.ForceCheck(context.Background())
	assert.False(t, h.Healthy)
	assert.False(t, c.IsHealthy())
}

func TestCheckerForceCheckUnhealthyOnError(t *testing.T) {
	c := New(&fakeAggregator{err: errors.New("connection refused")})
	h := c.ForceCheck(context.Background())
	assert.False(t, h.Healthy)
	assert.Contains(t, h.Error, "connection refused")
}

func TestCheckerHealthyToUnhealthyTransition(t *testing.T) {
	agg := &fakeAggregator{specs: []tools.ToolSpec{{Name: "search"}}}
	c := New(agg)
	c.ForceCheck(context.Background())
	require.True(t, c.IsHealthy())

	agg.specs = nil
	c.ForceCheck(context.Background())
	assert.False(t, c.IsHealthy())
}

func TestCheckerSetUnhealthyOverridesState(t *testing.T) {
	c := New(&fakeAggregator{specs: []tools.ToolSpec{{Name: "search"}}})
	c.ForceCheck(context.Background())
	require.True(t, c.IsHealthy())
	c.SetUnhealthy(context.Background(), "engine observed repeated failures")
	assert.False(t, c.IsHealthy())
}

func TestCheckerEnsureFreshSkipsRecentCheck(t *testing.T) {
	agg := &fakeAggregator{specs: []tools.ToolSpec{{Name: "search"}}}
	c := New(agg)
	c.ForceCheck(context.Background())
	agg.specs = nil // Would flip healthy->unhealthy if re-checked.
	h := c.EnsureFresh(context.Background(), time.Hour)
	assert.True(t, h.Healthy)
}
