package schema

import (
	"errors"
	"fmt"
	"sync"

	"github.com/km-arc/go-qudo/framework/errdefs"
	"github.com/km-arc/go-qudo/framework/validation"
)

var (
	ErrMissingRequiredProperty = fmt.Errorf("%w: missing required property", errdefs.ErrValidation)
	ErrDuplicateProperty       = fmt.Errorf("%w: property already declared", errdefs.ErrValidation)
	ErrInvalidProperty         = fmt.Errorf("%w: invalid property value", errdefs.ErrValidation)
)

// Schema is an ordered set of uniquely named properties.
//
// A nil *Schema is valid and builds an empty Config.
type Schema struct {
	mu    sync.RWMutex
	props []Property
	index map[string]int
}

// New declares every prop in order.
func New(props ...Property) (*Schema, error) {
	s := &Schema{index: make(map[string]int)}
	for _, p := range props {
		if err := s.Declare(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustNew is like New but panics on a duplicate declaration.
func MustNew(props ...Property) *Schema {
	s, err := New(props...)
	if err != nil {
		panic(err)
	}
	return s
}

// Declare adds p to the schema. Redeclaring a name is rejected.
func (s *Schema) Declare(p Property) error {
	if p.name == "" {
		return fmt.Errorf("%w: property name is empty", ErrInvalidProperty)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, ok := s.index[p.name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateProperty, p.name)
	}
	s.index[p.name] = len(s.props)
	s.props = append(s.props, p)
	return nil
}

// Extend returns a new schema holding the receiver's properties followed by props.
func (s *Schema) Extend(props ...Property) (*Schema, error) {
	return New(append(s.Properties(), props...)...)
}

// Properties returns the declared properties in declaration order.
func (s *Schema) Properties() []Property {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Property, len(s.props))
	copy(out, s.props)
	return out
}

// Property looks up a declared property by name.
func (s *Schema) Property(name string) (Property, bool) {
	if s == nil {
		return Property{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[name]
	if !ok {
		return Property{}, false
	}
	return s.props[i], true
}

// Len returns the number of declared properties.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.props)
}

// Build produces a Config from raw input: input values override defaults,
// undeclared keys are dropped, and required properties must end up with a value.
func (s *Schema) Build(input map[string]any) (Config, error) {
	props := s.Properties()
	values := make(map[string]any, len(props))
	rules := validation.Rules{}

	for _, p := range props {
		v, ok := input[p.name]
		if !ok || v == nil {
			v, ok = p.def, p.hasDefault && p.def != nil
		}
		if !ok {
			if p.required {
				return Config{}, fmt.Errorf("%w: %q", ErrMissingRequiredProperty, p.name)
			}
			continue
		}

		coerced, err := p.coerce(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %q: %v", ErrInvalidProperty, p.name, err)
		}
		values[p.name] = coerced
		if p.rules != "" {
			rules[p.name] = p.rules
		}
	}

	if errs := validation.Validate(values, rules); errs != nil {
		return Config{}, &InvalidError{Errors: errs}
	}
	return Config{schema: s, values: values}, nil
}

// InvalidError carries the rule failures of a Build.
type InvalidError struct {
	Errors *validation.Errors
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidProperty, e.Errors.Error())
}

func (e *InvalidError) Is(target error) bool {
	return target == ErrInvalidProperty || errors.Is(ErrInvalidProperty, target)
}

func (e *InvalidError) Unwrap() error { return e.Errors }
