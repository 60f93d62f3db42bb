package ratelimit

import "sync"

// Registry owns one limiter per provider, keyed by provider name. Limiter
// state lives here rather than inside client instances so that parallel
// provider runs stay safe if introduced later.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]Limiter
	configs  map[string]Config
}

// NewRegistry builds a registry from per-provider configs. Providers absent
// from the map get default limits on first use.
func NewRegistry(configs map[string]Config) *Registry {
	if configs == nil {
		configs = make(map[string]Config)
	}
	return &Registry{
		limiters: make(map[string]Limiter),
		configs:  configs,
	}
}

// For returns the limiter for a provider, creating it lazily.
func (r *Registry) For(provider string) Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lim, ok := r.limiters[provider]; ok {
		return lim
	}
	lim := New(r.configs[provider])
	r.limiters[provider] = lim
	return lim
}
