package workflowdef

import (
	"context"
	"fmt"
	"sync"

	"github.com/lyzr/workflowkernel/common/cache"
)

// Registry stores workflow documents durably (so a restarted process
// can still resolve a definition an in-flight instance references)
// and keeps an in-process cache of their compiled form, since a
// Compiled tree's node pointers aren't worth re-serializing on every
// lookup. Grounded on the same get-or-compile caching shape
// internal/scope's Evaluator uses for CEL programs.
type Registry struct {
	store cache.Cache

	mu       sync.RWMutex
	compiled map[string]*Compiled
}

// NewRegistry wraps a durable byte-oriented cache as a definition store.
func NewRegistry(store cache.Cache) *Registry {
	return &Registry{store: store, compiled: make(map[string]*Compiled)}
}

func registryKey(name, version string) string {
	return "workflowdef:" + name + "@" + version
}

// Put parses and compiles doc, storing both the raw document (for
// recovery after a restart) and the compiled tree (for immediate reuse).
func (r *Registry) Put(ctx context.Context, doc []byte) (*Compiled, error) {
	compiled, err := ParseAndCompile(doc)
	if err != nil {
		return nil, err
	}

	key := registryKey(compiled.Name, compiled.Version)
	if err := r.store.Set(ctx, key, doc, 0); err != nil {
		return nil, fmt.Errorf("store workflow document %s: %w", key, err)
	}

	r.mu.Lock()
	r.compiled[key] = compiled
	r.mu.Unlock()
	return compiled, nil
}

// Load resolves a compiled workflow by name/version, satisfying
// internal/outbox's DefinitionLoader. A definition absent from the
// in-process cache (e.g. after a restart) is recompiled from its
// durably stored document on first lookup.
func (r *Registry) Load(ctx context.Context, name, version string) (*Compiled, error) {
	key := registryKey(name, version)

	r.mu.RLock()
	compiled, ok := r.compiled[key]
	r.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	raw, found, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load workflow document %s: %w", key, err)
	}
	if !found {
		return nil, fmt.Errorf("workflow definition not found: %s@%s", name, version)
	}

	compiled, err = ParseAndCompile(raw)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.compiled[key] = compiled
	r.mu.Unlock()
	return compiled, nil
}

// Delete removes a definition from both the durable store and the
// in-process cache.
func (r *Registry) Delete(ctx context.Context, name, version string) error {
	key := registryKey(name, version)
	if err := r.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete workflow document %s: %w", key, err)
	}
	r.mu.Lock()
	delete(r.compiled, key)
	r.mu.Unlock()
	return nil
}
