// Package promptregistry implements a catalog of named prompt templates
// rendered with Go's text/template: plain variable interpolation plus
// {{if .Var}}...{{else}}...{{end}} conditional blocks, matching the style
// the ReAct engine's own reminder templates use.
package promptregistry

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/aws-idp/agentcore/corerrors"
)

// compiled pairs a template's source with its parsed form, recompiled on
// Reload so a hot-reloaded prompt file takes effect without a process
// restart.
type compiled struct {
	source string
	tmpl   *template.Template
}

// Loader supplies the named prompt sources a Registry compiles. The default
// Registry is seeded with a static map; a Loader lets callers back it with a
// file tree or a remote config source and Reload() on change.
type Loader interface {
	LoadPrompts() (map[string]string, error)
}

// staticLoader implements Loader over an in-memory map, used when a
// Registry is constructed directly from source strings.
type staticLoader struct{ sources map[string]string }

func (l staticLoader) LoadPrompts() (map[string]string, error) { return l.sources, nil }

// Registry is a named catalog of prompt templates. The zero value is not
// usable; construct with New.
type Registry struct {
	mu     sync.RWMutex
	loader Loader
	tmpls  map[string]compiled
}

// New compiles the given name->source templates into a Registry.
func New(sources map[string]string) (*Registry, error) {
	return NewFromLoader(staticLoader{sources: sources})
}

// NewFromLoader constructs a Registry from a Loader and compiles its initial
// set of prompts.
func NewFromLoader(loader Loader) (*Registry, error) {
	r := &Registry{loader: loader}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-fetches prompt sources from the Registry's Loader and
// recompiles every template, replacing the catalog atomically. An error
// leaves the previously compiled catalog in place.
func (r *Registry) Reload() error {
	sources, err := r.loader.LoadPrompts()
	if err != nil {
		return corerrors.Wrap(corerrors.KindInternal, "load prompt sources", err)
	}
	tmpls := make(map[string]compiled, len(sources))
	for name, src := range sources {
		t, err := template.New(name).Option("missingkey=error").Parse(strings.TrimSpace(src))
		if err != nil {
			return corerrors.Wrap(corerrors.KindValidation, fmt.Sprintf("prompt %q: parse template", name), err)
		}
		tmpls[name] = compiled{source: src, tmpl: t}
	}
	r.mu.Lock()
	r.tmpls = tmpls
	r.mu.Unlock()
	return nil
}

// Render executes the named template against vars. Returns a
// KindNotFound-classified error if name is not registered, and a
// KindValidation-classified error (the MissingVariable case) if vars omits
// a variable the template references.
func (r *Registry) Render(name string, vars map[string]any) (string, error) {
	r.mu.RLock()
	c, ok := r.tmpls[name]
	r.mu.RUnlock()
	if !ok {
		return "", corerrors.New(corerrors.KindNotFound, fmt.Sprintf("prompt %q is not registered", name))
	}
	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, vars); err != nil {
		return "", corerrors.Wrap(corerrors.KindValidation, fmt.Sprintf("prompt %q: missing variable", name), err)
	}
	return buf.String(), nil
}

// Names returns the registered prompt names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tmpls))
	for name := range r.tmpls {
		out = append(out, name)
	}
	return out
}

// Source returns the original, uncompiled template source for name, used by
// tooling that wants to display or diff prompt content.
func (r *Registry) Source(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.tmpls[name]
	if !ok {
		return "", false
	}
	return c.source, true
}
