package dispatch

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/tablero/tablero/internal/shared"
)

// Method is one callable business operation. Params arrive as the raw JSON
// payload from the dispatch request; the result is JSON-serializable.
type Method func(ctx context.Context, params json.RawMessage) (any, error)

// BusinessObject exposes a fixed set of named operations.
type BusinessObject interface {
	Methods() map[string]Method
}

// Factory builds an object instance carrying the caller identity.
type Factory func(ident shared.Identity) BusinessObject

// Registry is the closed mapping from object name to factory. It is populated
// once at startup; names not present are rejected before any resolution, so a
// client-supplied string can never reach a loader or the filesystem.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds name to factory. Last registration wins; names are
// case-sensitive to match the stored grants.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Resolve returns the factory for name, or false for unknown names.
func (r *Registry) Resolve(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// Names lists registered object names, sorted, for diagnostics.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
