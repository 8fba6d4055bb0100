package template

import (
	"context"

	"github.com/sherifkozman/red-council/internal/campaign"
)

// RegistryResolver adapts a Registry to the campaign runner's resolver port.
// Disabled templates resolve as missing so a campaign never executes them.
type RegistryResolver struct {
	registry Registry
}

// NewRegistryResolver creates a resolver over the given registry.
func NewRegistryResolver(registry Registry) *RegistryResolver {
	return &RegistryResolver{registry: registry}
}

// Resolve looks up the template and returns its prompt payload, or nil when
// the id is unknown or the template is disabled.
func (r *RegistryResolver) Resolve(ctx context.Context, id string) (*campaign.ResolvedTemplate, error) {
	tmpl, err := r.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tmpl == nil || !tmpl.Enabled {
		return nil, nil
	}
	return &campaign.ResolvedTemplate{ID: tmpl.ID, Prompt: tmpl.Prompt}, nil
}

var _ campaign.TemplateResolver = (*RegistryResolver)(nil)
