package factory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/km-arc/go-qudo/framework/errdefs"
)

var (
	ErrAlreadyBuilt        = fmt.Errorf("%w: target is already built", errdefs.ErrLifecycle)
	ErrUndefinedBuilder    = fmt.Errorf("%w: builder is not defined", errdefs.ErrLifecycle)
	ErrCircularDependency  = fmt.Errorf("%w: circular build", errdefs.ErrDependency)
	ErrFinalizationFailure = fmt.Errorf("%w: finalizer failed", errdefs.ErrLifecycle)
)

// ── Types ─────────────────────────────────────────────────────────────────────

// Builder constructs a target. The context carries the chain of factories
// currently building, so nested resolution can detect cycles.
type Builder func(ctx context.Context) (any, error)

// Finalizer releases a target.
type Finalizer func(target any) error

// Hookable is implemented by anything that accepts lifecycle hooks.
type Hookable interface {
	AddHook(event Event, hook Hook)
}

// ── Factory ───────────────────────────────────────────────────────────────────

// Factory lazily produces a single target and owns its lifecycle.
//
//	f := factory.New(func(ctx context.Context) (any, error) {
//	    return sql.Open("pgx", dsn)
//	}, factory.WithFinalizer(func(t any) error { return t.(*sql.DB).Close() }))
//
//	err := f.Use(ctx, func(t any) error {
//	    return t.(*sql.DB).PingContext(ctx)
//	}) // finalized on return
type Factory struct {
	mu sync.Mutex

	name      string
	builder   Builder
	finalizer Finalizer
	auto      bool
	logger    *slog.Logger

	hooks map[Event][]Hook

	built   bool
	target  any
	cleanup runtime.Cleanup
	armed   bool
}

// New creates an unbuilt factory. A nil builder makes the factory abstract:
// Build then fails with ErrUndefinedBuilder.
func New(builder Builder, opts ...Option) *Factory {
	f := &Factory{
		builder: builder,
		logger:  slog.Default(),
		hooks:   make(map[Event][]Hook),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns the label used in logs and cycle errors.
func (f *Factory) Name() string { return f.name }

// ── Lifecycle ─────────────────────────────────────────────────────────────────

// Build constructs the target. It fails with ErrAlreadyBuilt when the factory
// is built and with ErrUndefinedBuilder when it has no builder.
// A failed builder leaves the factory unbuilt.
func (f *Factory) Build(ctx context.Context) (any, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.built {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyBuilt, f.label())
	}
	return f.build(ctx)
}

// Resolve returns the target, building it first when needed. Concurrent
// first calls run the builder once.
func (f *Factory) Resolve(ctx context.Context) (any, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.built {
		return f.target, nil
	}
	return f.build(ctx)
}

// Finalize releases the target and returns the factory to the unbuilt state.
// It is a no-op when nothing is built. State is reset even when the
// finalizer fails; the failure is returned.
func (f *Factory) Finalize() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.built {
		return nil
	}

	target := f.target
	f.run(BeforeFinalize, target)
	if f.armed {
		f.cleanup.Stop()
		f.armed = false
	}

	var err error
	if f.finalizer != nil {
		if ferr := f.finalizer(target); ferr != nil {
			err = fmt.Errorf("%w: %s: %w", ErrFinalizationFailure, f.label(), ferr)
		}
	}
	f.run(AfterFinalize, target)

	f.built = false
	f.target = nil
	f.logger.Debug("factory finalized", "factory", f.name, "error", err)
	return err
}

// Use resolves the target, hands it to fn and finalizes on every exit path,
// including a panic in fn.
func (f *Factory) Use(ctx context.Context, fn func(target any) error) (err error) {
	target, err := f.Resolve(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Finalize())
	}()
	return fn(target)
}

// Built reports whether a target is held.
func (f *Factory) Built() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.built
}

// Target returns the held target, if any, without building.
func (f *Factory) Target() (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.target, f.built
}

// AddHook registers a hook for event. Hooks run in registration order.
func (f *Factory) AddHook(event Event, hook Hook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[event] = append(f.hooks[event], hook)
}

// build must hold mu.
func (f *Factory) build(ctx context.Context) (any, error) {
	if f.builder == nil {
		return nil, fmt.Errorf("%w: %s", ErrUndefinedBuilder, f.label())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.run(BeforeBuild, nil)
	target, err := f.builder(withFrame(ctx, f))
	if err != nil {
		f.logger.Debug("factory build failed", "factory", f.name, "error", err)
		return nil, err
	}

	f.built = true
	f.target = target
	f.run(AfterBuild, target)
	if f.auto {
		f.arm(target)
	}
	f.logger.Debug("factory built", "factory", f.name)
	return target, nil
}

// arm schedules the finalizer for when the factory itself is collected.
// The closure must not reference f, or f would never become unreachable.
func (f *Factory) arm(target any) {
	if f.finalizer == nil {
		return
	}
	release, logger, name := f.finalizer, f.logger, f.name
	f.cleanup = runtime.AddCleanup(f, func(t any) {
		if err := release(t); err != nil {
			logger.Warn("automatic finalization failed", "factory", name, "error", err)
		}
	}, target)
	f.armed = true
}

func (f *Factory) run(event Event, target any) {
	for _, hook := range f.hooks[event] {
		hook(target)
	}
}

func (f *Factory) label() string {
	if f.name == "" {
		return "<anonymous>"
	}
	return f.name
}

// ── Build chain ───────────────────────────────────────────────────────────────

type frameKey struct{}

// frame links the factories currently building on one resolution path.
type frame struct {
	factory *Factory
	parent  *frame
}

func withFrame(ctx context.Context, f *Factory) context.Context {
	parent, _ := ctx.Value(frameKey{}).(*frame)
	return context.WithValue(ctx, frameKey{}, &frame{factory: f, parent: parent})
}

// enter fails when f is already building on the path carried by ctx.
func (f *Factory) enter(ctx context.Context) error {
	top, _ := ctx.Value(frameKey{}).(*frame)
	for fr := top; fr != nil; fr = fr.parent {
		if fr.factory != f {
			continue
		}
		path := []string{f.label()}
		for p := top; p != fr; p = p.parent {
			path = append(path, p.factory.label())
		}
		path = append(path, f.label())
		for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
			path[i], path[j] = path[j], path[i]
		}
		return fmt.Errorf("%w: %s", ErrCircularDependency, strings.Join(path, " -> "))
	}
	return nil
}
