package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"github.com/km-arc/go-qudo/framework/component"
	"github.com/km-arc/go-qudo/framework/dependency"
	"github.com/km-arc/go-qudo/framework/errdefs"
	"github.com/km-arc/go-qudo/framework/factory"
)

var (
	ErrInvalidComponent = fmt.Errorf("%w: value does not support dependency injection", errdefs.ErrRegistration)
	ErrNotFound         = fmt.Errorf("%w: component is not registered", errdefs.ErrNotFound)
)

// ── Entry ─────────────────────────────────────────────────────────────────────

// Entry is anything the container can hold: a lazily resolvable value that
// accepts a dependency source. *component.Component is the usual Entry.
type Entry interface {
	dependency.Resolvable
	InjectDependencies(src dependency.Source) error
	DependenciesResolved() bool
}

type displacedEntry struct {
	name  string
	entry Entry
}

// finalizer is implemented by entries that own a releasable target.
type finalizer interface {
	Finalize() error
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container maps names to components and serves as their dependency source.
//
// It supports:
//   - Register a Definition (instantiated here) or a ready Entry
//   - Retrieve / Resolve, each with an OrFail variant
//   - Contextual dependencies (when A needs B, give it C)
//   - AutoRegister from a discovery catalog
//   - Shutdown in reverse build order
//   - Registered / resolved event callbacks
type Container struct {
	mu sync.RWMutex

	// name → entry
	store map[string]Entry

	// registration order, used to finalize entries that report no builds
	order []string

	// names in the order their targets were built; most recent last
	built []string

	// entries replaced by a later Register, finalized first on Shutdown
	displaced []displacedEntry

	// entries carrying the build-order hook
	hooked map[Entry]bool

	// contextual: when[consumer][dependency] = raw dependency
	contextual map[string]map[string]dependency.Dependency

	afterRegistering []func(name string, entry Entry)
	afterResolving   []func(name string, target any)

	logger *slog.Logger
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger passed on to components. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		store:      make(map[string]Entry),
		contextual: make(map[string]map[string]dependency.Dependency),
		hooked:     make(map[Entry]bool),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register stores a component under name, replacing any previous entry.
//
// A *component.Definition is instantiated with options and the container as
// its dependency source, so it can depend on entries registered before or
// after it. An Entry is stored as is; the container is injected only when
// its dependencies are still unresolved. Anything else fails with
// ErrInvalidComponent.
//
//	c.Register("cache", cache.Definition, map[string]any{"port": 7000})
//	c.Register("client", existingComponent, nil)
func (c *Container) Register(name string, input any, options map[string]any) (Entry, error) {
	src := c.sourceFor(name)

	var entry Entry
	switch v := input.(type) {
	case *component.Definition:
		opts := make(map[string]any, len(options)+1)
		for k, val := range options {
			opts[k] = val
		}
		opts[component.DependenciesKey] = src
		comp, err := component.New(v, opts,
			factory.WithName(name),
			factory.WithLogger(c.logger.With("component", name)),
		)
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
		entry = comp

	case Entry:
		if isNil(v) {
			return nil, fmt.Errorf("%w: %s (nil %T)", ErrInvalidComponent, name, input)
		}
		if !v.DependenciesResolved() {
			if err := v.InjectDependencies(src); err != nil {
				return nil, fmt.Errorf("register %s: %w", name, err)
			}
		}
		entry = v

	default:
		return nil, fmt.Errorf("%w: %s (%T)", ErrInvalidComponent, name, input)
	}

	c.mu.Lock()
	if old, exists := c.store[name]; exists {
		c.order = remove(c.order, name)
		c.built = remove(c.built, name)
		if !same(old, entry) {
			c.logger.Debug("replacing component", "component", name)
			c.displaced = append(c.displaced, displacedEntry{name: name, entry: old})
		}
	}
	c.store[name] = entry
	c.order = append(c.order, name)
	c.displaced = undisplace(c.displaced, entry)
	hook := c.track(entry)
	callbacks := c.afterRegistering
	c.mu.Unlock()

	if hook != nil {
		hook.AddHook(factory.AfterBuild, func(any) { c.markBuilt(entry) })
	}
	for _, cb := range callbacks {
		cb(name, entry)
	}
	return entry, nil
}

// ── Lookup ────────────────────────────────────────────────────────────────────

// Retrieve returns the entry registered under name, or nil.
func (c *Container) Retrieve(name string) Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store[name]
}

// RetrieveOrFail is like Retrieve but fails with ErrNotFound.
func (c *Container) RetrieveOrFail(name string) (Entry, error) {
	if e := c.Retrieve(name); e != nil {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Resolve builds (once) and returns the target registered under name.
// An unknown name yields (nil, nil).
func (c *Container) Resolve(ctx context.Context, name string) (any, error) {
	e := c.Retrieve(name)
	if e == nil {
		return nil, nil
	}
	return c.resolve(ctx, name, e)
}

// ResolveOrFail is like Resolve but fails with ErrNotFound.
func (c *Container) ResolveOrFail(ctx context.Context, name string) (any, error) {
	e, err := c.RetrieveOrFail(name)
	if err != nil {
		return nil, err
	}
	return c.resolve(ctx, name, e)
}

func (c *Container) resolve(ctx context.Context, name string, e Entry) (any, error) {
	target, err := e.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	callbacks := c.afterResolving
	c.mu.RUnlock()
	for _, cb := range callbacks {
		cb(name, target)
	}
	return target, nil
}

// Lookup implements dependency.Source over the live store.
func (c *Container) Lookup(name string) (dependency.Dependency, bool) {
	e := c.Retrieve(name)
	if e == nil {
		return dependency.Dependency{}, false
	}
	return dependency.FromResolvable(e), true
}

// Components returns a copy of the store.
func (c *Container) Components() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Entry, len(c.store))
	for k, v := range c.store {
		out[k] = v
	}
	return out
}

// Names returns the registered names in sorted order.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.store))
	for k := range c.store {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Has reports whether name is registered.
func (c *Container) Has(name string) bool { return c.Retrieve(name) != nil }

// Remove unregisters name and finalizes its entry, unless the same entry is
// still registered under another name. It fails with ErrNotFound for an
// unknown name; a finalizer failure is returned with the removed entry.
func (c *Container) Remove(name string) (Entry, error) {
	c.mu.Lock()
	e, ok := c.store[name]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(c.store, name)
	c.order = remove(c.order, name)
	c.built = remove(c.built, name)
	shared := c.registered(e)
	if !shared && hashable(e) {
		delete(c.hooked, e)
	}
	c.mu.Unlock()

	c.logger.Debug("removing component", "component", name)
	if f, ok := e.(finalizer); ok && !shared {
		if err := f.Finalize(); err != nil {
			return e, fmt.Errorf("finalize %s: %w", name, err)
		}
	}
	return e, nil
}

// ── Shutdown ──────────────────────────────────────────────────────────────────

// Shutdown finalizes entries displaced by re-registration first, then built
// entries, most recently built first, so dependents are released before
// their dependencies. Entries that do not report builds are finalized
// afterwards in reverse registration order. Every entry is
// attempted; the errors are joined. A done context stops the walk.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	seen := make(map[string]bool, len(c.store))
	var names []string
	var entries []Entry
	for i := len(c.displaced) - 1; i >= 0; i-- {
		d := c.displaced[i]
		if c.registered(d.entry) {
			continue
		}
		if hashable(d.entry) {
			delete(c.hooked, d.entry)
		}
		names = append(names, d.name)
		entries = append(entries, d.entry)
	}
	c.displaced = nil
	for i := len(c.built) - 1; i >= 0; i-- {
		names = append(names, c.built[i])
		seen[c.built[i]] = true
	}
	for i := len(c.order) - 1; i >= 0; i-- {
		if !seen[c.order[i]] {
			names = append(names, c.order[i])
		}
	}
	for _, n := range names[len(entries):] {
		entries = append(entries, c.store[n])
	}
	c.built = nil
	c.mu.Unlock()

	var errs []error
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		f, ok := e.(finalizer)
		if !ok {
			continue
		}
		if err := f.Finalize(); err != nil {
			c.logger.Warn("component finalization failed", "component", names[i], "error", err)
			errs = append(errs, fmt.Errorf("finalize %s: %w", names[i], err))
		}
	}
	return errors.Join(errs...)
}

// track returns the entry's hook target when it still needs the build-order
// hook, and marks it as hooked. Must hold mu.
func (c *Container) track(entry Entry) factory.Hookable {
	h, ok := entry.(factory.Hookable)
	if !ok || !hashable(entry) || c.hooked[entry] {
		return nil
	}
	c.hooked[entry] = true
	return h
}

// registered reports whether e is stored under any name. Must hold mu.
func (c *Container) registered(e Entry) bool {
	for _, other := range c.store {
		if same(other, e) {
			return true
		}
	}
	return false
}

// markBuilt moves every name entry is registered under to the end of the
// build order.
func (c *Container) markBuilt(entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range c.order {
		if same(c.store[name], entry) {
			c.built = append(remove(c.built, name), name)
		}
	}
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// AfterRegistering registers a callback fired after every successful Register.
func (c *Container) AfterRegistering(cb func(name string, entry Entry)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterRegistering = append(c.afterRegistering, cb)
}

// AfterResolving registers a callback fired after Resolve returns a target.
// Dependencies resolved while building other components do not fire it.
func (c *Container) AfterResolving(cb func(name string, target any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

// ── Generics helper ───────────────────────────────────────────────────────────

// ResolveAs resolves name and type-asserts the target.
//
//	client, err := container.ResolveAs[*http.Client](ctx, c, "client")
func ResolveAs[T any](ctx context.Context, c *Container, name string) (T, error) {
	var zero T
	target, err := c.ResolveOrFail(ctx, name)
	if err != nil {
		return zero, err
	}
	typed, ok := target.(T)
	if !ok {
		return zero, fmt.Errorf("container: ResolveAs[%T]: %q resolved to %T", zero, name, target)
	}
	return typed, nil
}

// comparable reports whether e can be used as a map key or compared with ==.
func hashable(e Entry) bool {
	return e != nil && reflect.TypeOf(e).Comparable()
}

// same reports whether a and b are the same entry. Non-comparable entries
// are never the same.
func same(a, b Entry) bool {
	if !hashable(a) || !hashable(b) || reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return a == b
}

// isNil reports a nil pointer, map, slice, func or chan behind an Entry.
func isNil(e Entry) bool {
	if e == nil {
		return true
	}
	switch v := reflect.ValueOf(e); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

func undisplace(list []displacedEntry, entry Entry) []displacedEntry {
	out := list[:0]
	for _, d := range list {
		if !same(d.entry, entry) {
			out = append(out, d)
		}
	}
	return out
}

func remove(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
