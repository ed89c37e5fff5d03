package promptregistry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-idp/agentcore/corerrors"
)

func TestRenderInterpolatesVariables(t *testing.T) {
	r, err := New(map[string]string{
		"greeting": "Hello, {{.Name}}!",
	})
	require.NoError(t, err)

	out, err := r.Render("greeting", map[string]any{"Name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ada!", out)
}

func TestRenderConditionalBlock(t *testing.T) {
	r, err := New(map[string]string{
		"status": "State: ok{{if .Warning}}\nWarning: {{.Warning}}{{else}}\nNo warnings{{end}}",
	})
	require.NoError(t, err)

	withWarning, err := r.Render("status", map[string]any{"Warning": "low disk"})
	require.NoError(t, err)
	assert.Contains(t, withWarning, "Warning: low disk")

	withoutWarning, err := r.Render("status", map[string]any{"Warning": ""})
	require.NoError(t, err)
	assert.Contains(t, withoutWarning, "No warnings")
}

func TestRenderUnknownPromptReturnsNotFound(t *testing.T) {
	r, err := New(map[string]string{})
	require.NoError(t, err)

	_, err = r.Render("missing", nil)
	require.Error(t, err)
	assert.True(t, corerrors.Is(err, corerrors.KindNotFound))
}

func TestRenderMissingVariableReturnsValidationError(t *testing.T) {
	r, err := New(map[string]string{
		"needs_var": "Value: {{.Required}}",
	})
	require.NoError(t, err)

	_, err = r.Render("needs_var", map[string]any{})
	require.Error(t, err)
	assert.True(t, corerrors.Is(err, corerrors.KindValidation))
}

func TestReloadRecompilesFromLoader(t *testing.T) {
	l := &mutableLoader{sources: map[string]string{"p": "v1"}}
	r, err := NewFromLoader(l)
	require.NoError(t, err)

	out, err := r.Render("p", nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", out)

	l.sources = map[string]string{"p": "v2"}
	require.NoError(t, r.Reload())

	out, err = r.Render("p", nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", out)
}

func TestReloadFailureKeepsPriorCatalog(t *testing.T) {
	l := &mutableLoader{sources: map[string]string{"p": "v1"}}
	r, err := NewFromLoader(l)
	require.NoError(t, err)

	l.err = errors.New("backend unavailable")
	require.Error(t, r.Reload())

	out, err := r.Render("p", nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", out)
}

type mutableLoader struct {
	sources map[string]string
	err     error
}

func (l *mutableLoader) LoadPrompts() (map[string]string, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.sources, nil
}
