package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-qudo/framework/errdefs"
)

// ErrKeyExists reports a second write to a Store key.
var ErrKeyExists = fmt.Errorf("%w: config key already set", errdefs.ErrRegistration)

// Store is a set-once key/value configuration. Keys are flat and dotted:
// "resource" applies to every component that declares it, "cache.port" only
// to the component registered as "cache".
//
// Because a key can be written once, the first loader to supply a key wins.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]any)}
}

// ── Writes ────────────────────────────────────────────────────────────────────

// Set stores v under key. Setting a key twice fails with ErrKeyExists.
func (s *Store) Set(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return fmt.Errorf("%w: %q", ErrKeyExists, key)
	}
	s.values[key] = v
	return nil
}

// Merge sets every pair of values, skipping keys that are already set.
// It returns the keys that were skipped.
func (s *Store) Merge(values map[string]any) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var skipped []string
	for k, v := range values {
		if _, ok := s.values[k]; ok {
			skipped = append(skipped, k)
			continue
		}
		s.values[k] = v
	}
	sort.Strings(skipped)
	return skipped
}

// ── Loaders ───────────────────────────────────────────────────────────────────

// LoadEnvFiles reads dotenv files without touching the process environment
// and merges the variables that start with prefix.
func (s *Store) LoadEnvFiles(prefix string, files ...string) error {
	vars, err := godotenv.Read(files...)
	if err != nil {
		return fmt.Errorf("config: read env files: %w", err)
	}
	s.Merge(fromEnv(prefix, vars))
	return nil
}

// LoadEnviron merges the process environment variables that start with prefix.
func (s *Store) LoadEnviron(prefix string) {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	s.Merge(fromEnv(prefix, vars))
}

// LoadYAMLFile merges a YAML document from path, see LoadYAML.
func (s *Store) LoadYAMLFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return s.LoadYAML(raw)
}

// LoadYAML merges a YAML mapping. Nested mappings flatten into dotted keys:
//
//	resource: https://example.com
//	cache:
//	  port: 7000        # → "cache.port"
func (s *Store) LoadYAML(raw []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("config: parse yaml: %w", err)
	}
	flat := make(map[string]any)
	flatten("", doc, flat)
	s.Merge(flat)
	return nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

// Get returns the value under key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether key is set.
func (s *Store) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// GetString returns the value under key formatted as a string, or defaultVal.
func (s *Store) GetString(key, defaultVal string) string {
	v, ok := s.Get(key)
	if !ok || v == nil {
		return defaultVal
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// GetInt returns the value under key as an int, or defaultVal.
func (s *Store) GetInt(key string, defaultVal int) int {
	switch v, _ := s.Get(key); n := v.(type) {
	case int:
		return n
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetBool returns the value under key as a bool, or defaultVal.
func (s *Store) GetBool(key string, defaultVal bool) bool {
	switch v, _ := s.Get(key); b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// Keys returns every key in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.values))
	for k := range s.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// All returns a copy of every value.
func (s *Store) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Options returns the options for the component registered as name: every
// top-level key, overlaid with the keys under "name." with that prefix removed.
func (s *Store) Options(name string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any)
	for k, v := range s.values {
		if !strings.Contains(k, ".") {
			out[k] = v
		}
	}
	prefix := name + "."
	for k, v := range s.values {
		if rest, ok := strings.CutPrefix(k, prefix); ok && !strings.Contains(rest, ".") {
			out[rest] = v
		}
	}
	return out
}

// ── helpers ─────────────────────────────────────────────────────────────────

// fromEnv keeps variables starting with prefix and turns the rest of the name
// into a key: QUDO_RESOURCE → "resource", QUDO_CACHE__PORT → "cache.port".
func fromEnv(prefix string, vars map[string]string) map[string]any {
	out := make(map[string]any)
	for k, v := range vars {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok || rest == "" {
			continue
		}
		out[strings.ToLower(strings.ReplaceAll(rest, "__", "."))] = v
	}
	return out
}

func flatten(prefix string, in map[string]any, out map[string]any) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}
