// Package compiler holds the registry that maps compiler ids to the
// compilers that turn a component's sources into its packaged layout.
package compiler

import (
	"context"
	"slices"
	"sync"

	"github.com/conneroisu/ocpack/internal/descriptor"
	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/templates"
)

// Request is one compilation. ComponentPath holds the sources and
// OutputPath is an existing, empty directory owned by this call.
type Request struct {
	ComponentPath string
	OutputPath    string
	Descriptor    *descriptor.Descriptor
	Template      templates.ResolvedTemplate
}

// Artifact is one compiled file, relative to the output directory.
type Artifact struct {
	Src     string
	Type    string
	HashKey string
}

// Output describes what a compiler wrote.
type Output struct {
	View         Artifact
	DataProvider *Artifact
	Static       []string
}

// Compiler transforms component sources into a package directory.
type Compiler interface {
	Compile(ctx context.Context, req Request) (*Output, error)
}

// Func adapts a function to Compiler.
type Func func(ctx context.Context, req Request) (*Output, error)

// Compile calls f.
func (f Func) Compile(ctx context.Context, req Request) (*Output, error) {
	return f(ctx, req)
}

// Registry maps compiler ids to compilers. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	compilers map[string]Compiler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{compilers: make(map[string]Compiler)}
}

// DefaultRegistry returns a registry holding the built-in compilers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, kind := range builtinKinds {
		r.Register(templates.CanonicalPrefix+kind.name+templates.CompilerSuffix, NewStaticCompiler(kind.ext))
	}
	return r
}

// Register adds or replaces the compiler for id.
func (r *Registry) Register(id string, c Compiler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compilers[id] = c
}

// Lookup returns the compiler for id, or TemplateInvalid.
func (r *Registry) Lookup(id string) (Compiler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.compilers[id]
	if !ok {
		return nil, errors.TemplateInvalid(id, id, nil).
			WithDetails("no compiler registered for " + id)
	}
	return c, nil
}

// Resolve looks up the compiler for a resolved template and reports the
// requested type on failure.
func (r *Registry) Resolve(resolved templates.ResolvedTemplate) (Compiler, error) {
	c, err := r.Lookup(resolved.CompilerID)
	if err != nil {
		return nil, errors.TemplateInvalid(resolved.RequestedType, resolved.CompilerID, nil).
			WithDetails("no compiler registered for " + resolved.CompilerID)
	}
	return c, nil
}

// IDs returns the registered compiler ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.compilers))
	for id := range r.compilers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
