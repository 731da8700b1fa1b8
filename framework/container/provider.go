package container

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups component registrations with the code that uses them.
//
// Register is called as soon as the provider is added. Boot is called after
// every provider has been registered, which makes it safe to resolve
// components there.
//
//	type CacheProvider struct{ container.BaseProvider }
//
//	func (p *CacheProvider) Register(c *container.Container) error {
//	    _, err := c.Register("cache", cache.Definition, nil)
//	    return err
//	}
//
//	func (p *CacheProvider) Boot(ctx context.Context, c *container.Container) error {
//	    _, err := c.ResolveOrFail(ctx, "cache") // warm up
//	    return err
//	}
type ServiceProvider interface {
	// Register adds components to the container. Do not resolve here.
	Register(c *Container) error

	// Boot runs after all providers are registered.
	Boot(ctx context.Context, c *Container) error
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable no-op Boot.
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(c *container.Container) error { ... }
type BaseProvider struct{}

func (p *BaseProvider) Boot(context.Context, *Container) error { return nil }

// ProviderFunc adapts a register function into a ServiceProvider with a no-op Boot.
type ProviderFunc func(c *Container) error

func (f ProviderFunc) Register(c *Container) error            { return f(c) }
func (f ProviderFunc) Boot(context.Context, *Container) error { return nil }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry registers and boots ServiceProviders against one container.
type ProviderRegistry struct {
	mu         sync.Mutex
	container  *Container
	providers  []ServiceProvider
	registered map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to c.
func NewProviderRegistry(c *Container) *ProviderRegistry {
	return &ProviderRegistry{
		container:  c,
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register method. Adding the same
// provider twice is a no-op; providers of non-comparable types such as
// ProviderFunc are not deduplicated. Providers added after Boot are booted at once.
func (r *ProviderRegistry) Register(ctx context.Context, p ServiceProvider) error {
	if reflect.TypeOf(p).Comparable() {
		r.mu.Lock()
		if r.registered[p] {
			r.mu.Unlock()
			return nil
		}
		r.registered[p] = true
		r.mu.Unlock()
	}

	if err := p.Register(r.container); err != nil {
		return fmt.Errorf("register provider %T: %w", p, err)
	}

	r.mu.Lock()
	r.providers = append(r.providers, p)
	booted := r.booted
	r.mu.Unlock()

	if booted {
		if err := p.Boot(ctx, r.container); err != nil {
			return fmt.Errorf("boot provider %T: %w", p, err)
		}
	}
	return nil
}

// Boot calls Boot on every registered provider, once.
func (r *ProviderRegistry) Boot(ctx context.Context) error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	providers := append([]ServiceProvider(nil), r.providers...)
	r.mu.Unlock()

	for _, p := range providers {
		if err := p.Boot(ctx, r.container); err != nil {
			return fmt.Errorf("boot provider %T: %w", p, err)
		}
	}
	return nil
}

// Booted returns true if Boot has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns the registered providers in registration order.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.providers...)
}
