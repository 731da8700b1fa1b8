package dependency

import (
	"context"
	"fmt"
	"sort"
)

// Source supplies raw dependencies by name. A Container is a Source, so are
// MapSource values.
type Source interface {
	Lookup(name string) (Dependency, bool)
}

// MapSource is a fixed Source.
type MapSource map[string]Dependency

func (m MapSource) Lookup(name string) (Dependency, bool) {
	d, ok := m[name]
	return d, ok
}

// FromMap classifies every value with Of.
func FromMap(raw map[string]any) (MapSource, error) {
	out := make(MapSource, len(raw))
	for name, v := range raw {
		d, err := Of(v)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", name, err)
		}
		out[name] = d
	}
	return out, nil
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Retrieve looks every name up in src and returns a fresh map holding exactly
// those names. The first absent name fails with a *MissingError.
func Retrieve(src Source, names []string) (map[string]Dependency, error) {
	out := make(map[string]Dependency, len(names))
	for _, name := range names {
		if _, seen := out[name]; seen {
			continue
		}
		var (
			d  Dependency
			ok bool
		)
		if src != nil {
			d, ok = src.Lookup(name)
		}
		if !ok {
			return nil, &MissingError{Name: name}
		}
		out[name] = d
	}
	return out, nil
}

// Resolve retrieves names from src and resolves each, in the order given.
func Resolve(ctx context.Context, src Source, names []string) (Map, error) {
	raw, err := Retrieve(src, names)
	if err != nil {
		return Map{}, err
	}
	values := make(map[string]any, len(raw))
	for _, name := range names {
		if _, done := values[name]; done {
			continue
		}
		v, err := ResolveOne(ctx, raw[name])
		if err != nil {
			return Map{}, fmt.Errorf("dependency %q: %w", name, err)
		}
		values[name] = v
	}
	return Map{values: values}, nil
}

// ── Map ───────────────────────────────────────────────────────────────────────

// Map is an immutable set of resolved dependencies.
type Map struct {
	values map[string]any
}

// NewMap copies values into a Map.
func NewMap(values map[string]any) Map {
	m := Map{values: make(map[string]any, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// Get returns the resolved value of name.
func (m Map) Get(name string) (any, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Has reports whether name is present.
func (m Map) Has(name string) bool {
	_, ok := m.values[name]
	return ok
}

func (m Map) Len() int { return len(m.values) }

// Names returns the dependency names in sorted order.
func (m Map) Names() []string {
	out := make([]string, 0, len(m.values))
	for k := range m.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ToMap returns a copy of the values.
func (m Map) ToMap() map[string]any {
	out := make(map[string]any, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Get returns the dependency name from m as a T.
//
//	client, err := dependency.Get[*http.Client](deps, "client")
func Get[T any](m Map, name string) (T, error) {
	var zero T
	v, ok := m.values[name]
	if !ok {
		return zero, &MissingError{Name: name}
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q resolved to %T, not %T", ErrUnresolvableDependency, name, v, zero)
	}
	return typed, nil
}
