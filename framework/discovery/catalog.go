package discovery

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/km-arc/go-qudo/framework/errdefs"
)

var (
	ErrDuplicateEntry = fmt.Errorf("%w: catalog path already taken", errdefs.ErrRegistration)
	ErrBadPattern     = fmt.Errorf("%w: malformed pattern", errdefs.ErrRegistration)
)

// Entry is one discovered component.
type Entry struct {
	// Path is the catalog path, e.g. "cache/redis".
	Path string
	// Key is the registration name inferred from Path, e.g. "cache_redis".
	Key string
	// Value is what was added: normally a *component.Definition.
	Value any
}

// Catalog is an explicit manifest of components keyed by slash-separated paths.
// It stands in for scanning source directories: packages add their definitions
// at init time, and the application discovers them by pattern.
//
//	catalog.MustAdd("cache/redis", redis.Definition)
//	catalog.MustAdd("http/client", client.Definition)
//
//	entries, _ := catalog.Discover("cache/**")
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]any)}
}

// Add records value under p. Paths are cleaned; a taken path fails with
// ErrDuplicateEntry.
func (c *Catalog) Add(p string, value any) error {
	p = clean(p)
	if p == "" {
		return fmt.Errorf("%w: empty path", ErrBadPattern)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]any)
	}
	if _, ok := c.entries[p]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateEntry, p)
	}
	c.entries[p] = value
	return nil
}

// MustAdd is like Add but panics on error.
func (c *Catalog) MustAdd(p string, value any) {
	if err := c.Add(p, value); err != nil {
		panic(err)
	}
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Discover returns the entries whose path matches pattern, sorted by path.
// Segments follow path.Match; a "**" segment spans any number of segments.
// Two matched paths with the same key fail with ErrDuplicateEntry.
func (c *Catalog) Discover(pattern string) ([]Entry, error) {
	want := strings.Split(clean(pattern), "/")
	for _, seg := range want {
		if seg == "**" {
			continue
		}
		if _, err := path.Match(seg, ""); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Entry
	for p, v := range c.entries {
		if match(want, strings.Split(p, "/")) {
			out = append(out, Entry{Path: p, Key: Key(p), Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	byKey := make(map[string]string, len(out))
	for _, e := range out {
		if prev, ok := byKey[e.Key]; ok {
			return nil, fmt.Errorf("%w: %q and %q both map to key %q", ErrDuplicateEntry, prev, e.Path, e.Key)
		}
		byKey[e.Key] = e.Path
	}
	return out, nil
}

func match(pattern, segs []string) bool {
	if len(pattern) == 0 {
		return len(segs) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(segs); i++ {
			if match(pattern[1:], segs[i:]) {
				return true
			}
		}
		return false
	}
	if len(segs) == 0 {
		return false
	}
	ok, _ := path.Match(pattern[0], segs[0])
	return ok && match(pattern[1:], segs[1:])
}

func clean(p string) string {
	p = strings.Trim(path.Clean("/"+strings.TrimSpace(p)), "/")
	return p
}

// ── Key inference ─────────────────────────────────────────────────────────────

// Key infers a registration name from a catalog path by joining its segments
// with underscores and converting CamelCase to snake_case.
//
//	Key("a/b/sample2")          == "a_b_sample2"
//	Key("Cache/RedisClient")    == "cache_redis_client"
//	Key("http/HTTPClient.go")   == "http_http_client"
func Key(p string) string {
	p = clean(p)
	if ext := path.Ext(p); ext != "" {
		p = strings.TrimSuffix(p, ext)
	}
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = underscore(s)
	}
	return strings.Join(segs, "_")
}

func underscore(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		switch {
		case r == '-' || r == ' ' || r == '.':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
