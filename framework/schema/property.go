package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind selects the coercion applied to a property value before validation.
type Kind int

const (
	// Any keeps values as supplied.
	Any Kind = iota
	String
	Int
	Float
	Bool
	Duration
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Duration:
		return "duration"
	}
	return "any"
}

// Property describes a single named config value. Build one with Prop.
type Property struct {
	name       string
	required   bool
	def        any
	hasDefault bool
	kind       Kind
	rules      string
}

// PropertyOption configures a Property.
type PropertyOption func(*Property)

// Prop declares a property.
//
//	schema.Prop("port", schema.Required(), schema.Default(6379), schema.OfKind(schema.Int))
func Prop(name string, opts ...PropertyOption) Property {
	p := Property{name: name}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Required marks the property as mandatory once defaults are applied.
func Required() PropertyOption {
	return func(p *Property) { p.required = true }
}

// Default sets the value used when the input omits the property.
func Default(v any) PropertyOption {
	return func(p *Property) {
		p.def = v
		p.hasDefault = true
	}
}

// OfKind coerces supplied values, e.g. "7000" from an env file into 7000.
func OfKind(k Kind) PropertyOption {
	return func(p *Property) { p.kind = k }
}

// Rules attaches validation rules, see package validation.
func Rules(rules string) PropertyOption {
	return func(p *Property) { p.rules = rules }
}

func (p Property) Name() string       { return p.name }
func (p Property) IsRequired() bool   { return p.required }
func (p Property) Kind() Kind         { return p.kind }
func (p Property) RuleString() string { return p.rules }

// Default returns the declared default and whether one was declared.
func (p Property) Default() (any, bool) { return p.def, p.hasDefault }

// coerce converts v to the property's kind.
func (p Property) coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch p.kind {
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil

	case Int:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case int32:
			return int(n), nil
		case uint:
			return int(n), nil
		case float64:
			if n != float64(int(n)) {
				return nil, fmt.Errorf("%v is not a whole number", n)
			}
			return int(n), nil
		case string:
			return strconv.Atoi(strings.TrimSpace(n))
		}

	case Float:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case string:
			return strconv.ParseFloat(strings.TrimSpace(n), 64)
		}

	case Bool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "yes", "on":
				return true, nil
			case "no", "off":
				return false, nil
			}
			return strconv.ParseBool(strings.TrimSpace(b))
		}

	case Duration:
		switch d := v.(type) {
		case time.Duration:
			return d, nil
		case int:
			return time.Duration(d), nil
		case int64:
			return time.Duration(d), nil
		case string:
			return time.ParseDuration(strings.TrimSpace(d))
		}

	default:
		return v, nil
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, p.kind)
}

// toInt converts any Go integer, a whole float or a numeric string to int.
// ok is false when v is none of those.
func toInt(v any) (n int, ok bool, err error) {
	switch x := v.(type) {
	case int:
		return x, true, nil
	case int8:
		return int(x), true, nil
	case int16:
		return int(x), true, nil
	case int32:
		return int(x), true, nil
	case int64:
		if x < math.MinInt || x > math.MaxInt {
			return 0, true, fmt.Errorf("%d overflows int", x)
		}
		return int(x), true, nil
	case uint8:
		return int(x), true, nil
	case uint16:
		return int(x), true, nil
	case uint32:
		if uint64(x) > math.MaxInt {
			return 0, true, fmt.Errorf("%d overflows int", x)
		}
		return int(x), true, nil
	case uint:
		if uint64(x) > math.MaxInt {
			return 0, true, fmt.Errorf("%d overflows int", x)
		}
		return int(x), true, nil
	case uint64:
		if x > math.MaxInt {
			return 0, true, fmt.Errorf("%d overflows int", x)
		}
		return int(x), true, nil
	case float32:
		return wholeFloat(float64(x))
	case float64:
		return wholeFloat(x)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		return i, true, err
	}
	return 0, false, nil
}

func wholeFloat(f float64) (int, bool, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, true, fmt.Errorf("%v is not a whole number", f)
	}
	if f < math.MinInt || f >= math.MaxInt {
		return 0, true, fmt.Errorf("%v overflows int", f)
	}
	return int(f), true, nil
}
