package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-idp/agentcore/agentctx"
	"github.com/aws-idp/agentcore/corerrors"
)

func echoSpec() ToolSpec {
	return ToolSpec{
		Name:        "echo",
		Description: "echoes the message argument",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []any{"message"},
			"properties": map[string]any{
				"message": map[string]any{"type": "string"},
			},
		},
	}
}

func echoHandler(_ context.Context, args map[string]any, _ agentctx.AgentContext) (RawToolResult, error) {
	msg, _ := args["message"].(string)
	return RawToolResult{Success: true, Message: "Echo: " + msg, Data: map[string]any{"message": "Echo: " + msg}}, nil
}

func TestRegistryInvokeUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Invoke(context.Background(), "missing", nil, agentctx.AgentContext{})
	require.Error(t, err)
	assert.True(t, corerrors.Is(err, corerrors.KindNotFound))
}

func TestRegistryInvokeSchemaError(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoSpec(), echoHandler))
	_, err := r.Invoke(context.Background(), "echo", map[string]any{}, agentctx.AgentContext{})
	require.Error(t, err)
	assert.True(t, corerrors.Is(err, corerrors.KindSchemaError))
}

func TestRegistryInvokeSuccess(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoSpec(), echoHandler))
	result, err := r.Invoke(context.Background(), "echo", map[string]any{"message": "Hi"}, agentctx.AgentContext{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Echo: Hi", result.Message)
}

func TestRegistryInvokeRecoversPanic(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(ToolSpec{Name: "boom"}, func(context.Context, map[string]any, agentctx.AgentContext) (RawToolResult, error) {
		panic("kaboom")
	}))
	result, err := r.Invoke(context.Background(), "boom", nil, agentctx.AgentContext{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "kaboom")
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoSpec(), echoHandler))
	err := r.Register(echoSpec(), echoHandler)
	require.Error(t, err)
}

func TestRegistryCacheClearsOnContextChange(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoSpec(), echoHandler))
	_, err := r.Invoke(context.Background(), "echo", map[string]any{"message": "a"}, agentctx.AgentContext{IndexID: "idx1"})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Stats())

	_, err = r.Invoke(context.Background(), "echo", map[string]any{"message": "b"}, agentctx.AgentContext{IndexID: "idx2"})
	require.NoError(t, err)
	// Cache was invalidated by the index_id change, then repopulated by this call.
	assert.Equal(t, 1, r.Stats())
}

func TestRegistryCacheBoundedCircular(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoSpec(), echoHandler))
	for i := 0; i < cacheSize+5; i++ {
		_, err := r.Invoke(context.Background(), "echo", map[string]any{"message": "x"}, agentctx.AgentContext{})
		require.NoError(t, err)
	}
	assert.Equal(t, cacheSize, r.Stats())
}
