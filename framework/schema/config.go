package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config is an immutable set of property values produced by Schema.Build.
// The zero Config is empty.
type Config struct {
	schema *Schema
	values map[string]any
}

// Get returns the value of name and whether it is set.
func (c Config) Get(name string) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Value returns the value of name, or nil.
func (c Config) Value(name string) any { return c.values[name] }

// Has reports whether name carries a value.
func (c Config) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Len returns the number of set values.
func (c Config) Len() int { return len(c.values) }

// String returns the value of name formatted as a string, or "" when unset.
func (c Config) String(name string) string {
	switch v := c.values[name].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the value of name as an int, or 0 when unset or not an int.
func (c Config) Int(name string) int {
	v, _ := c.values[name].(int)
	return v
}

// Float64 returns the value of name as a float64, or 0.
func (c Config) Float64(name string) float64 {
	switch v := c.values[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// Bool returns the value of name as a bool, or false.
func (c Config) Bool(name string) bool {
	v, _ := c.values[name].(bool)
	return v
}

// Duration returns the value of name as a time.Duration, or 0.
func (c Config) Duration(name string) time.Duration {
	v, _ := c.values[name].(time.Duration)
	return v
}

// Names returns the set property names in declaration order.
func (c Config) Names() []string {
	out := make([]string, 0, len(c.values))
	for _, p := range c.schema.Properties() {
		if _, ok := c.values[p.name]; ok {
			out = append(out, p.name)
		}
	}
	return out
}

// Map returns a copy of the values.
func (c Config) Map() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Schema returns the schema the config was built from, possibly nil.
func (c Config) Schema() *Schema { return c.schema }

// With returns a new Config with overrides applied on top of the current values.
// The receiver is left untouched.
func (c Config) With(overrides map[string]any) (Config, error) {
	merged := c.Map()
	for k, v := range overrides {
		merged[k] = v
	}
	return c.schema.Build(merged)
}

// Decode copies the values into a struct through a JSON round trip,
// so json tags on the target apply.
//
//	var opts struct {
//	    Host string `json:"host"`
//	    Port int    `json:"port"`
//	}
//	err := cfg.Decode(&opts)
func (c Config) Decode(into any) error {
	raw, err := json.Marshal(c.values)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, into)
}

// MarshalJSON renders the values as a JSON object.
func (c Config) MarshalJSON() ([]byte, error) {
	if c.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.values)
}
