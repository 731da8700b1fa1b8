package component

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/km-arc/go-qudo/framework/dependency"
	"github.com/km-arc/go-qudo/framework/errdefs"
	"github.com/km-arc/go-qudo/framework/factory"
	"github.com/km-arc/go-qudo/framework/schema"
)

// DependenciesKey is the reserved option key carrying the dependency source.
const DependenciesKey = "dependencies"

var (
	ErrAlreadyResolved     = fmt.Errorf("%w: dependencies are already resolved", errdefs.ErrDependency)
	ErrInvalidDependencies = fmt.Errorf("%w: unsupported dependencies option", errdefs.ErrDependency)
)

// Component is a configured instance of a Definition. It embeds the Factory
// that owns its target, so Resolve, Finalize, Use and hooks apply directly.
type Component struct {
	*factory.Factory

	id     uuid.UUID
	def    *Definition
	config schema.Config

	mu       sync.Mutex
	source   dependency.Source
	resolved *dependency.Map
	argsDone bool
}

// New instantiates def. Options build the config through the definition's
// schema; the reserved "dependencies" option, when present, becomes the
// pending dependency source and may be a dependency.Source, a
// map[string]dependency.Dependency or a map[string]any of raw dependencies.
func New(def *Definition, options map[string]any, opts ...factory.Option) (*Component, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	}

	raw := make(map[string]any, len(options))
	for k, v := range options {
		if k != DependenciesKey {
			raw[k] = v
		}
	}
	cfg, err := def.schema.Build(raw)
	if err != nil {
		return nil, fmt.Errorf("component %s: %w", def.name, err)
	}

	c := &Component{id: uuid.New(), def: def, config: cfg}
	if deps, ok := options[DependenciesKey]; ok && deps != nil {
		src, err := toSource(deps)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", def.name, err)
		}
		c.source = src
	}

	fopts := []factory.Option{factory.WithName(def.name)}
	if def.finalizer != nil {
		fopts = append(fopts, factory.WithFinalizer(def.finalizer))
	}
	if def.autoFinalize {
		fopts = append(fopts, factory.AutoFinalize())
	}
	for _, h := range def.hooks {
		fopts = append(fopts, factory.WithHook(h.event, h.fn))
	}
	fopts = append(fopts, opts...)

	var builder factory.Builder
	if def.builder != nil {
		builder = c.build
	}
	c.Factory = factory.New(builder, fopts...)
	return c, nil
}

func (c *Component) build(ctx context.Context) (any, error) {
	cfg, deps, err := c.BuildArgs(ctx)
	if err != nil {
		return nil, err
	}
	return c.def.builder(ctx, cfg, deps)
}

// ── Dependencies ──────────────────────────────────────────────────────────────

// InjectDependencies sets the pending dependency source. It fails with
// ErrAlreadyResolved once the dependencies have been resolved.
func (c *Component) InjectDependencies(src dependency.Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyResolved, c.def.name)
	}
	c.source = src
	return nil
}

// DependenciesResolved reports whether the dependencies have been resolved.
func (c *Component) DependenciesResolved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved != nil
}

// ResolveDependencies resolves the declared dependencies from the pending
// source and freezes them. It fails with ErrAlreadyResolved on a second
// successful call; a failed attempt may be retried.
func (c *Component) ResolveDependencies(ctx context.Context) (dependency.Map, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved != nil {
		return dependency.Map{}, fmt.Errorf("%w: %s", ErrAlreadyResolved, c.def.name)
	}
	return c.resolveDependencies(ctx)
}

// must hold mu
func (c *Component) resolveDependencies(ctx context.Context) (dependency.Map, error) {
	deps, err := dependency.Resolve(ctx, c.source, c.def.dependencies)
	if err != nil {
		return dependency.Map{}, fmt.Errorf("component %s: %w", c.def.name, err)
	}
	c.resolved = &deps
	return deps, nil
}

// ResolvedDependencies returns the frozen dependencies, if resolved.
func (c *Component) ResolvedDependencies() (dependency.Map, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved == nil {
		return dependency.Map{}, false
	}
	return *c.resolved, true
}

// BuildArgs returns the config and resolved dependencies handed to the
// builder. The dependencies are resolved on the first call only.
func (c *Component) BuildArgs(ctx context.Context) (schema.Config, dependency.Map, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.argsDone {
		return c.config, *c.resolved, nil
	}
	deps := dependency.Map{}
	if c.resolved != nil {
		deps = *c.resolved
	} else {
		var err error
		if deps, err = c.resolveDependencies(ctx); err != nil {
			return schema.Config{}, dependency.Map{}, err
		}
	}
	c.argsDone = true
	return c.config, deps, nil
}

// ── Accessors ─────────────────────────────────────────────────────────────────

func (c *Component) ID() uuid.UUID            { return c.id }
func (c *Component) Config() schema.Config    { return c.config }
func (c *Component) Definition() *Definition  { return c.def }
func (c *Component) Dependencies() []string   { return c.def.Dependencies() }

func toSource(v any) (dependency.Source, error) {
	switch s := v.(type) {
	case dependency.Source:
		return s, nil
	case map[string]dependency.Dependency:
		return dependency.MapSource(s), nil
	case map[string]any:
		return dependency.FromMap(s)
	}
	return nil, fmt.Errorf("%w: %T", ErrInvalidDependencies, v)
}
