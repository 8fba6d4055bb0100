package template

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sherifkozman/red-council/internal/types"
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Category    Category
	Severity    Severity
	OnlyEnabled bool
}

// Registry manages template registration and lookup.
type Registry interface {
	// Register adds or replaces a template.
	Register(ctx context.Context, tmpl *Template) error

	// Get retrieves a template by id. Returns nil with no error for unknown
	// ids so callers can distinguish "missing" from "broken".
	Get(ctx context.Context, id string) (*Template, error)

	// List retrieves templates matching the filter, ordered by id.
	List(ctx context.Context, filter *Filter) ([]*Template, error)

	// Disable soft-deletes a template.
	Disable(ctx context.Context, id string) error

	// Enable re-enables a disabled template.
	Enable(ctx context.Context, id string) error

	// Count returns the number of templates matching the filter.
	Count(ctx context.Context, filter *Filter) (int, error)
}

// MemoryRegistry is a thread-safe in-memory Registry, seeded from builtins
// and YAML packs.
type MemoryRegistry struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{templates: make(map[string]*Template)}
}

// NewMemoryRegistryWithBuiltins creates a registry pre-loaded with the
// built-in template set.
func NewMemoryRegistryWithBuiltins() *MemoryRegistry {
	r := NewMemoryRegistry()
	for _, tmpl := range Builtins() {
		t := tmpl
		r.templates[t.ID] = &t
	}
	return r
}

func (r *MemoryRegistry) Register(ctx context.Context, tmpl *Template) error {
	if tmpl == nil {
		return types.NewError(types.TEMPLATE_INVALID, "template cannot be nil")
	}
	if err := tmpl.Validate(); err != nil {
		return types.WrapError(types.TEMPLATE_INVALID, "template validation failed", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *tmpl
	r.templates[cp.ID] = &cp
	return nil
}

func (r *MemoryRegistry) Get(ctx context.Context, id string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tmpl, ok := r.templates[id]
	if !ok {
		return nil, nil
	}
	cp := *tmpl
	return &cp, nil
}

func (r *MemoryRegistry) List(ctx context.Context, filter *Filter) ([]*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Template
	for _, tmpl := range r.templates {
		if !matchesFilter(tmpl, filter) {
			continue
		}
		cp := *tmpl
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRegistry) Disable(ctx context.Context, id string) error {
	return r.setEnabled(id, false)
}

func (r *MemoryRegistry) Enable(ctx context.Context, id string) error {
	return r.setEnabled(id, true)
}

func (r *MemoryRegistry) setEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tmpl, ok := r.templates[id]
	if !ok {
		return types.NewError(types.TEMPLATE_NOT_FOUND, fmt.Sprintf("template %q not found", id))
	}
	tmpl.Enabled = enabled
	return nil
}

func (r *MemoryRegistry) Count(ctx context.Context, filter *Filter) (int, error) {
	templates, err := r.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(templates), nil
}

func matchesFilter(tmpl *Template, filter *Filter) bool {
	if filter == nil {
		return true
	}
	if filter.Category != "" && tmpl.Category != filter.Category {
		return false
	}
	if filter.Severity != "" && tmpl.Severity != filter.Severity {
		return false
	}
	if filter.OnlyEnabled && !tmpl.Enabled {
		return false
	}
	return true
}

var _ Registry = (*MemoryRegistry)(nil)
