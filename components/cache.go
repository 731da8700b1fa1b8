package components

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/km-arc/go-qudo/framework/component"
	"github.com/km-arc/go-qudo/framework/dependency"
	"github.com/km-arc/go-qudo/framework/schema"
)

// CacheDefinition describes an in-process key/value cache addressed like a
// remote one.
var CacheDefinition = component.MustDefine("cache",
	component.WithProperties(
		schema.Prop("host", schema.Default("0.0.0.0"), schema.Rules("string")),
		schema.Prop("port", schema.Default(6379), schema.OfKind(schema.Int), schema.Rules("between:1,65535")),
		schema.Prop("db", schema.Default(0), schema.OfKind(schema.Int), schema.Rules("gte:0")),
		schema.Prop("ttl", schema.Default("5m"), schema.OfKind(schema.Duration)),
	),
	component.WithBuilder(func(_ context.Context, cfg schema.Config, _ dependency.Map) (any, error) {
		return NewCache(
			net.JoinHostPort(cfg.String("host"), strconv.Itoa(cfg.Int("port"))),
			cfg.Int("db"),
			cfg.Duration("ttl"),
		), nil
	}),
	component.WithFinalizer(func(t any) error {
		return t.(*Cache).Close()
	}),
)

// Cache is a TTL cache keyed by string.
type Cache struct {
	addr string
	db   int
	ttl  time.Duration

	mu      sync.Mutex
	items   map[string]item
	closed  bool
	nowFunc func() time.Time
}

type item struct {
	value   []byte
	expires time.Time
}

// ErrCacheClosed reports use of a closed cache.
var ErrCacheClosed = errors.New("cache: closed")

// NewCache returns an empty cache. A zero ttl keeps entries forever.
func NewCache(addr string, db int, ttl time.Duration) *Cache {
	return &Cache{addr: addr, db: db, ttl: ttl, items: make(map[string]item), nowFunc: time.Now}
}

func (c *Cache) Addr() string { return c.addr }
func (c *Cache) DB() int      { return c.db }

// Get returns the value under key, unless it expired.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if !it.expires.IsZero() && !c.nowFunc().Before(it.expires) {
		delete(c.items, key)
		return nil, false
	}
	return it.value, true
}

// Set stores value under key.
func (c *Cache) Set(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	it := item{value: value}
	if c.ttl > 0 {
		it.expires = c.nowFunc().Add(c.ttl)
	}
	c.items[key] = it
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close drops every entry. Later writes fail with ErrCacheClosed.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]item)
	c.closed = true
	return nil
}
