package component

import (
	"context"
	"fmt"

	"github.com/km-arc/go-qudo/framework/dependency"
	"github.com/km-arc/go-qudo/framework/errdefs"
	"github.com/km-arc/go-qudo/framework/factory"
	"github.com/km-arc/go-qudo/framework/schema"
)

// ErrInvalidDefinition reports a definition that can not be declared.
var ErrInvalidDefinition = fmt.Errorf("%w: invalid component definition", errdefs.ErrRegistration)

// Builder constructs a component target from its config and resolved dependencies.
type Builder func(ctx context.Context, cfg schema.Config, deps dependency.Map) (any, error)

// Definition describes a kind of component: its config schema, the names of
// the dependencies it needs, and how to build and release its target.
// A Definition is immutable once declared; instances are made with New.
type Definition struct {
	name         string
	schema       *schema.Schema
	props        []schema.Property
	dependencies []string
	builder      Builder
	finalizer    factory.Finalizer
	autoFinalize bool
	hooks        []hook
}

type hook struct {
	event factory.Event
	fn    factory.Hook
}

// Option configures a Definition.
type Option func(*Definition)

// Define declares a component definition.
//
//	var Cache = component.MustDefine("cache",
//	    component.WithProperties(
//	        schema.Prop("host", schema.Default("0.0.0.0")),
//	        schema.Prop("port", schema.Default(6379), schema.OfKind(schema.Int)),
//	    ),
//	    component.WithBuilder(func(ctx context.Context, cfg schema.Config, _ dependency.Map) (any, error) {
//	        return redis.Dial(ctx, cfg.String("host"), cfg.Int("port"))
//	    }),
//	    component.WithFinalizer(func(t any) error { return t.(*redis.Client).Close() }),
//	)
func Define(name string, opts ...Option) (*Definition, error) {
	return (&Definition{}).derive(name, opts)
}

// MustDefine is like Define but panics on error. Use it for package-level definitions.
func MustDefine(name string, opts ...Option) *Definition {
	d, err := Define(name, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// Extend derives a new definition that inherits everything from d.
// Properties passed through WithProperties are added to the inherited schema.
func (d *Definition) Extend(name string, opts ...Option) (*Definition, error) {
	return d.derive(name, opts)
}

func (d *Definition) derive(name string, opts []Option) (*Definition, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrInvalidDefinition)
	}
	next := &Definition{
		name:         name,
		schema:       d.schema,
		dependencies: append([]string(nil), d.dependencies...),
		builder:      d.builder,
		finalizer:    d.finalizer,
		autoFinalize: d.autoFinalize,
		hooks:        append([]hook(nil), d.hooks...),
	}
	for _, opt := range opts {
		opt(next)
	}
	if len(next.props) > 0 {
		s, err := next.schema.Extend(next.props...)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDefinition, name, err)
		}
		next.schema = s
		next.props = nil
	}
	return next, nil
}

// ── Options ───────────────────────────────────────────────────────────────────

// WithSchema replaces the config schema.
func WithSchema(s *schema.Schema) Option {
	return func(d *Definition) { d.schema = s }
}

// WithProperties declares properties on top of the current schema.
func WithProperties(props ...schema.Property) Option {
	return func(d *Definition) { d.props = append(d.props, props...) }
}

// WithDependencies sets the names of the dependencies the builder receives.
func WithDependencies(names ...string) Option {
	return func(d *Definition) { d.dependencies = append([]string(nil), names...) }
}

// WithBuilder sets the build function. Without one the definition is abstract.
func WithBuilder(fn Builder) Option {
	return func(d *Definition) { d.builder = fn }
}

// WithFinalizer sets the function that releases the target.
func WithFinalizer(fn factory.Finalizer) Option {
	return func(d *Definition) { d.finalizer = fn }
}

// AutoFinalize opts instances into best-effort finalization on garbage collection.
func AutoFinalize() Option {
	return func(d *Definition) { d.autoFinalize = true }
}

// WithHook attaches a lifecycle hook to every instance.
func WithHook(event factory.Event, fn factory.Hook) Option {
	return func(d *Definition) { d.hooks = append(d.hooks, hook{event: event, fn: fn}) }
}

// ── Accessors ─────────────────────────────────────────────────────────────────

func (d *Definition) Name() string           { return d.name }
func (d *Definition) Schema() *schema.Schema { return d.schema }
func (d *Definition) Abstract() bool         { return d.builder == nil }

// Dependencies returns the declared dependency names.
func (d *Definition) Dependencies() []string {
	return append([]string(nil), d.dependencies...)
}
