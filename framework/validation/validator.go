package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ── Error bag ─────────────────────────────────────────────────────────────────

// Errors collects rule failures per property.
// JSON output: {"errors": {"port": ["The port must be an integer."]}}
type Errors struct {
	Bag map[string][]string `json:"errors"`
}

func (e *Errors) add(field, format string, args ...any) {
	if e.Bag == nil {
		e.Bag = make(map[string][]string)
	}
	e.Bag[field] = append(e.Bag[field], fmt.Sprintf(format, args...))
}

// Has returns true if there are any errors.
func (e *Errors) Has() bool { return e != nil && len(e.Bag) > 0 }

// First returns the first error for a field.
func (e *Errors) First(field string) string {
	if e == nil {
		return ""
	}
	if msgs := e.Bag[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Fields returns the failing field names in sorted order.
func (e *Errors) Fields() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.Bag))
	for f := range e.Bag {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Error implements error so a bag can be wrapped and returned directly.
func (e *Errors) Error() string {
	var parts []string
	for _, f := range e.Fields() {
		parts = append(parts, strings.Join(e.Bag[f], " "))
	}
	return strings.Join(parts, " ")
}

// ── Validator ─────────────────────────────────────────────────────────────────

// Rules maps a field to its pipe-separated rule string.
//
//	validation.Rules{"port": "required|integer|between:1,65535", "host": "required"}
type Rules map[string]string

// Validator checks a map of property values against Rules.
type Validator struct {
	data   map[string]any
	rules  Rules
	errors *Errors
	ran    bool
}

// Make creates a new Validator.
func Make(data map[string]any, rules Rules) *Validator {
	return &Validator{data: data, rules: rules, errors: &Errors{}}
}

// Validate is a shorthand that returns the error bag, or nil when every rule passes.
func Validate(data map[string]any, rules Rules) *Errors {
	v := Make(data, rules)
	if v.Fails() {
		return v.Errors()
	}
	return nil
}

// Fails runs validation once and reports whether any rule failed.
func (v *Validator) Fails() bool {
	if !v.ran {
		v.ran = true
		v.validate()
	}
	return v.errors.Has()
}

// Passes reports whether every rule passed.
func (v *Validator) Passes() bool { return !v.Fails() }

// Errors returns the error bag.
func (v *Validator) Errors() *Errors { return v.errors }

func (v *Validator) validate() {
	for field, spec := range v.rules {
		value, present := v.data[field]
		in := input{field: field, raw: value, present: present, text: stringify(value), data: v.data}

		for _, rule := range strings.Split(spec, "|") {
			rule = strings.TrimSpace(rule)
			if rule == "" {
				continue
			}
			name, param, _ := strings.Cut(rule, ":")
			check, ok := checks[name]
			if !ok {
				v.errors.add(field, "The %s has an unknown rule %q.", field, name)
				break
			}
			if !check(v.errors, in, param) {
				break // bail on first failure, like Laravel
			}
		}
	}
}

// ── Rules ─────────────────────────────────────────────────────────────────────

type input struct {
	field   string
	raw     any
	present bool
	text    string
	data    map[string]any
}

// check returns false to stop evaluating further rules for the field.
type check func(errs *Errors, in input, param string) bool

var (
	alphaRe     = regexp.MustCompile(`^[a-zA-Z]+$`)
	alphaNumRe  = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	alphaDashRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	urlRe       = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://`)
)

var checks = map[string]check{
	"required": func(errs *Errors, in input, _ string) bool {
		if !in.present || in.raw == nil || strings.TrimSpace(in.text) == "" {
			errs.add(in.field, "The %s field is required.", in.field)
			return false
		}
		return true
	},
	"nullable": func(_ *Errors, in input, _ string) bool {
		return in.present && in.raw != nil
	},
	"sometimes": func(_ *Errors, in input, _ string) bool {
		return in.present && in.text != ""
	},
	"string": func(errs *Errors, in input, _ string) bool {
		if _, ok := in.raw.(string); !ok {
			errs.add(in.field, "The %s must be a string.", in.field)
			return false
		}
		return true
	},
	"numeric": func(errs *Errors, in input, _ string) bool {
		if _, ok := number(in.raw); !ok {
			errs.add(in.field, "The %s must be a number.", in.field)
			return false
		}
		return true
	},
	"integer": func(errs *Errors, in input, _ string) bool {
		if _, err := strconv.Atoi(in.text); err != nil {
			errs.add(in.field, "The %s must be an integer.", in.field)
			return false
		}
		return true
	},
	"boolean": func(errs *Errors, in input, _ string) bool {
		switch strings.ToLower(in.text) {
		case "true", "false", "1", "0", "yes", "no":
			return true
		}
		errs.add(in.field, "The %s field must be true or false.", in.field)
		return false
	},
	"duration": func(errs *Errors, in input, _ string) bool {
		if _, ok := in.raw.(time.Duration); ok {
			return true
		}
		if _, err := time.ParseDuration(in.text); err != nil {
			errs.add(in.field, "The %s must be a duration.", in.field)
			return false
		}
		return true
	},
	"email": func(errs *Errors, in input, _ string) bool {
		if _, err := mail.ParseAddress(in.text); err != nil {
			errs.add(in.field, "The %s must be a valid email address.", in.field)
			return false
		}
		return true
	},
	"url": func(errs *Errors, in input, _ string) bool {
		if !urlRe.MatchString(in.text) {
			errs.add(in.field, "The %s must be a valid URL.", in.field)
			return false
		}
		return true
	},
	"min": func(errs *Errors, in input, param string) bool {
		limit, _ := strconv.ParseFloat(param, 64)
		if size(in) < limit {
			errs.add(in.field, "The %s must be at least %s%s.", in.field, param, unit(in))
			return false
		}
		return true
	},
	"max": func(errs *Errors, in input, param string) bool {
		limit, _ := strconv.ParseFloat(param, 64)
		if size(in) > limit {
			errs.add(in.field, "The %s may not be greater than %s%s.", in.field, param, unit(in))
			return false
		}
		return true
	},
	"size": func(errs *Errors, in input, param string) bool {
		limit, _ := strconv.ParseFloat(param, 64)
		if size(in) != limit {
			errs.add(in.field, "The %s must be %s%s.", in.field, param, unit(in))
			return false
		}
		return true
	},
	"between": func(errs *Errors, in input, param string) bool {
		lo, hi, ok := strings.Cut(param, ",")
		if !ok {
			return true
		}
		min, _ := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		max, _ := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		if s := size(in); s < min || s > max {
			errs.add(in.field, "The %s must be between %s and %s%s.", in.field, strings.TrimSpace(lo), strings.TrimSpace(hi), unit(in))
			return false
		}
		return true
	},
	"in": func(errs *Errors, in input, param string) bool {
		for _, a := range strings.Split(param, ",") {
			if strings.TrimSpace(a) == in.text {
				return true
			}
		}
		errs.add(in.field, "The selected %s is invalid.", in.field)
		return false
	},
	"not_in": func(errs *Errors, in input, param string) bool {
		for _, d := range strings.Split(param, ",") {
			if strings.TrimSpace(d) == in.text {
				errs.add(in.field, "The selected %s is invalid.", in.field)
				return false
			}
		}
		return true
	},
	"same": func(errs *Errors, in input, param string) bool {
		if stringify(in.data[param]) != in.text {
			errs.add(in.field, "The %s and %s must match.", in.field, param)
			return false
		}
		return true
	},
	"different": func(errs *Errors, in input, param string) bool {
		if stringify(in.data[param]) == in.text {
			errs.add(in.field, "The %s and %s must be different.", in.field, param)
			return false
		}
		return true
	},
	"alpha":      pattern(alphaRe, "The %s may only contain letters."),
	"alpha_num":  pattern(alphaNumRe, "The %s may only contain letters and numbers."),
	"alpha_dash": pattern(alphaDashRe, "The %s may only contain letters, numbers, dashes and underscores."),
	"regex": func(errs *Errors, in input, param string) bool {
		re, err := regexp.Compile(param)
		if err != nil || !re.MatchString(in.text) {
			errs.add(in.field, "The %s format is invalid.", in.field)
			return false
		}
		return true
	},
	"gt":  compare(func(a, b float64) bool { return a > b }, "greater than"),
	"gte": compare(func(a, b float64) bool { return a >= b }, "greater than or equal to"),
	"lt":  compare(func(a, b float64) bool { return a < b }, "less than"),
	"lte": compare(func(a, b float64) bool { return a <= b }, "less than or equal to"),
}

func pattern(re *regexp.Regexp, msg string) check {
	return func(errs *Errors, in input, _ string) bool {
		if !re.MatchString(in.text) {
			errs.add(in.field, msg, in.field)
			return false
		}
		return true
	}
}

func compare(ok func(a, b float64) bool, phrase string) check {
	return func(errs *Errors, in input, param string) bool {
		n, isNum := number(in.raw)
		t, _ := strconv.ParseFloat(param, 64)
		if !isNum || !ok(n, t) {
			errs.add(in.field, "The %s must be %s %s.", in.field, phrase, param)
			return false
		}
		return true
	}
}

// ── helpers ─────────────────────────────────────────────────────────────────

// size measures numbers by value and everything else by rune count.
func size(in input) float64 {
	if _, isText := in.raw.(string); !isText {
		if n, ok := number(in.raw); ok {
			return n
		}
	}
	return float64(utf8.RuneCountInString(in.text))
}

func unit(in input) string {
	if _, isText := in.raw.(string); isText || in.raw == nil {
		return " characters"
	}
	if _, ok := number(in.raw); ok {
		return ""
	}
	return " characters"
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprint(v)
}
