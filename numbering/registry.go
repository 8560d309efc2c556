package numbering

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrProcessorExists indicates a duplicate registration for an editing context.
	ErrProcessorExists = errors.New("processor already registered")
	// ErrUnknownContext indicates a lookup for an editing context nobody registered.
	ErrUnknownContext = errors.New("no processor for editing context")
)

// Registry maps editing contexts (for example "council" or "commission") to
// the Processor that serves them. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]Processor
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[string]Processor)}
}

// NewRegistryFromModes registers one Renumberer per context, each built from
// base with its Mode replaced.
func NewRegistryFromModes(contexts map[string]Mode, base Options, post PostProcessor) (*Registry, error) {
	reg := NewRegistry()
	for ctx, mode := range contexts {
		opts := base
		opts.Mode = mode
		p, err := New(opts, post)
		if err != nil {
			return nil, fmt.Errorf("context %s: %w", ctx, err)
		}
		if err := reg.Register(ctx, p); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Register adds p for context. Context names are case-insensitive.
func (r *Registry) Register(context string, p Processor) error {
	if p == nil {
		return errors.New("processor is nil")
	}
	key := contextKey(context)
	if key == "" {
		return errors.New("editing context is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.processors[key]; exists {
		return fmt.Errorf("%w: %s", ErrProcessorExists, key)
	}
	r.processors[key] = p
	return nil
}

// Lookup returns the processor registered for context.
func (r *Registry) Lookup(context string) (Processor, error) {
	key := contextKey(context)
	r.mu.RLock()
	p, ok := r.processors[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownContext, key)
	}
	return p, nil
}

// List returns the registered contexts in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.processors))
	for k := range r.processors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func contextKey(context string) string {
	return strings.ToLower(strings.TrimSpace(context))
}
