package container

import (
	"context"

	"github.com/km-arc/go-qudo/framework/dependency"
)

// ContextualBuilder implements the fluent contextual dependency API.
//
//	// When "api" needs "cache", give it the session cache instead.
//	c.When("api").Needs("cache").GiveComponent("session_cache")
type ContextualBuilder struct {
	container *Container
	consumer  string
	needs     string
}

// When starts a contextual dependency chain for the component registered as consumer.
func (c *Container) When(consumer string) *ContextualBuilder {
	return &ContextualBuilder{container: c, consumer: consumer}
}

// Needs names the dependency to override.
func (b *ContextualBuilder) Needs(name string) *ContextualBuilder {
	b.needs = name
	return b
}

// Give sets the raw dependency served to the consumer.
func (b *ContextualBuilder) Give(d dependency.Dependency) {
	b.container.mu.Lock()
	defer b.container.mu.Unlock()

	if _, ok := b.container.contextual[b.consumer]; !ok {
		b.container.contextual[b.consumer] = make(map[string]dependency.Dependency)
	}
	b.container.contextual[b.consumer][b.needs] = d
}

// GiveValue serves a ready value.
func (b *ContextualBuilder) GiveValue(v any) {
	b.Give(dependency.Value(v))
}

// GiveComponent serves another registered component, looked up at build time.
func (b *ContextualBuilder) GiveComponent(name string) {
	c := b.container
	b.Give(dependency.Func(func(ctx context.Context) (any, error) {
		return c.ResolveOrFail(ctx, name)
	}))
}

// ── scoped source ─────────────────────────────────────────────────────────────

// scopedSource is the dependency source handed to the component registered
// as consumer: contextual overrides first, then the live store.
type scopedSource struct {
	container *Container
	consumer  string
}

func (c *Container) sourceFor(consumer string) dependency.Source {
	return scopedSource{container: c, consumer: consumer}
}

func (s scopedSource) Lookup(name string) (dependency.Dependency, bool) {
	s.container.mu.RLock()
	d, ok := s.container.contextual[s.consumer][name]
	s.container.mu.RUnlock()
	if ok {
		return d, true
	}
	return s.container.Lookup(name)
}
