package dependency

import (
	"context"
	"fmt"

	"github.com/km-arc/go-qudo/framework/errdefs"
)

var (
	ErrMissingDependency      = fmt.Errorf("%w: dependency is not found", errdefs.ErrDependency)
	ErrUnresolvableDependency = fmt.Errorf("%w: dependency can not be resolved", errdefs.ErrDependency)
)

// MissingError names the dependency a source could not supply.
type MissingError struct {
	Name string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: %q", ErrMissingDependency, e.Name)
}

func (e *MissingError) Unwrap() error { return ErrMissingDependency }

// ── Dependency ────────────────────────────────────────────────────────────────

// Resolvable is implemented by lazily built values, factories and components alike.
type Resolvable interface {
	Resolve(ctx context.Context) (any, error)
}

// Kind tells which variant a Dependency holds.
type Kind int

const (
	KindInvalid Kind = iota
	KindValue
	KindResolvable
	KindInvocable
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindResolvable:
		return "resolvable"
	case KindInvocable:
		return "invocable"
	}
	return "invalid"
}

// Dependency is a raw, not yet resolved dependency: a ready value, something
// Resolvable, or a function to invoke. The zero Dependency is invalid.
type Dependency struct {
	kind       Kind
	value      any
	resolvable Resolvable
	invocable  func(ctx context.Context) (any, error)
}

// Value wraps an already resolved value.
func Value(v any) Dependency {
	return Dependency{kind: KindValue, value: v}
}

// FromResolvable wraps r; resolution calls r.Resolve.
func FromResolvable(r Resolvable) Dependency {
	if r == nil {
		return Dependency{}
	}
	return Dependency{kind: KindResolvable, resolvable: r}
}

// Func wraps a function; resolution invokes it.
func Func(fn func(ctx context.Context) (any, error)) Dependency {
	if fn == nil {
		return Dependency{}
	}
	return Dependency{kind: KindInvocable, invocable: fn}
}

// Of classifies a raw value. Resolvable values win over invocable ones;
// plain values are rejected, wrap them with Value instead.
func Of(v any) (Dependency, error) {
	switch d := v.(type) {
	case Dependency:
		if d.kind == KindInvalid {
			return Dependency{}, ErrUnresolvableDependency
		}
		return d, nil
	case Resolvable:
		return FromResolvable(d), nil
	case func(context.Context) (any, error):
		return Func(d), nil
	case func() (any, error):
		return Func(func(context.Context) (any, error) { return d() }), nil
	case func() any:
		return Func(func(context.Context) (any, error) { return d(), nil }), nil
	}
	return Dependency{}, fmt.Errorf("%w: %T", ErrUnresolvableDependency, v)
}

// Kind returns the variant held.
func (d Dependency) Kind() Kind { return d.kind }

// ResolveOne extracts the underlying value of d.
func ResolveOne(ctx context.Context, d Dependency) (any, error) {
	switch d.kind {
	case KindValue:
		return d.value, nil
	case KindResolvable:
		return d.resolvable.Resolve(ctx)
	case KindInvocable:
		return d.invocable(ctx)
	}
	return nil, ErrUnresolvableDependency
}
