package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Router dispatches requests to a provider client chosen from the model id.
// "openai:gpt-4.1" goes to the client registered as "openai" with model
// "gpt-4.1"; an id without a registered provider prefix (e.g. "llama3" or
// "kimi-k2-thinking:cloud") goes verbatim to the default provider.
type Router struct {
	defaultProvider string

	mu        sync.RWMutex
	providers map[string]ChatBackend
	order     []string
}

// NewRouter creates an empty router that falls back to defaultProvider.
func NewRouter(defaultProvider string) *Router {
	return &Router{
		defaultProvider: defaultProvider,
		providers:       make(map[string]ChatBackend),
	}
}

// Register adds or replaces the client for a provider name.
func (r *Router) Register(name string, b ChatBackend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = b
}

// Providers returns the registered provider names in registration order.
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Resolve returns the client and the provider-local model name for model.
func (r *Router) Resolve(model string) (ChatBackend, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if provider, name, err := ParseModelString(model); err == nil {
		if b, ok := r.providers[provider]; ok {
			return b, name, nil
		}
	}

	b, ok := r.providers[r.defaultProvider]
	if !ok {
		return nil, "", fmt.Errorf("no provider registered for model %q (default provider %q is not configured)", model, r.defaultProvider)
	}
	return b, model, nil
}

// Complete implements ChatBackend.
func (r *Router) Complete(ctx context.Context, req Request) (*Response, error) {
	b, model, err := r.Resolve(req.Model)
	if err != nil {
		return nil, err
	}
	req.Model = model
	return b.Complete(ctx, req)
}

// Stream implements ChatBackend.
func (r *Router) Stream(ctx context.Context, req Request) (Stream, error) {
	b, model, err := r.Resolve(req.Model)
	if err != nil {
		return nil, err
	}
	req.Model = model
	return b.Stream(ctx, req)
}

// ProviderModels is the listing result for one provider.
type ProviderModels struct {
	Provider string
	Models   []ModelInfo
	Err      error
}

// ListProviderModels queries every registered provider that can list models.
// Failures are reported per provider rather than aborting the listing.
func (r *Router) ListProviderModels(ctx context.Context) []ProviderModels {
	r.mu.RLock()
	names := append([]string(nil), r.order...)
	providers := make(map[string]ChatBackend, len(r.providers))
	for name, b := range r.providers {
		providers[name] = b
	}
	r.mu.RUnlock()

	var results []ProviderModels
	for _, name := range names {
		lister, ok := providers[name].(ModelLister)
		if !ok {
			continue
		}
		models, err := lister.ListModels(ctx)
		for i := range models {
			models[i].Provider = name
		}
		results = append(results, ProviderModels{Provider: name, Models: models, Err: err})
	}
	return results
}

// ListModels implements ModelLister. Ids are returned in "provider:model"
// form. An error is returned only when no provider could be listed.
func (r *Router) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var (
		models []ModelInfo
		errs   []error
		listed bool
	)
	for _, pm := range r.ListProviderModels(ctx) {
		if pm.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pm.Provider, pm.Err))
			continue
		}
		listed = true
		for _, m := range pm.Models {
			m.ID = FormatModelString(pm.Provider, m.ID)
			models = append(models, m)
		}
	}
	if !listed {
		if len(errs) == 0 {
			return nil, errors.New("no provider supports model listing")
		}
		return nil, errors.Join(errs...)
	}
	return models, nil
}
