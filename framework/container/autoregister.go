package container

import (
	"fmt"

	"github.com/km-arc/go-qudo/framework/discovery"
)

// Discoverer lists components matching a pattern. *discovery.Catalog is one.
type Discoverer interface {
	Discover(pattern string) ([]discovery.Entry, error)
}

// AutoRegister registers every entry d discovers for pattern under its
// inferred key, passing options to each. Components keep only the options
// their schema declares. It stops at the first entry that can not be
// registered and returns the keys registered so far.
func (c *Container) AutoRegister(d Discoverer, pattern string, options func(key string) map[string]any) ([]string, error) {
	entries, err := d.Discover(pattern)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		var opts map[string]any
		if options != nil {
			opts = options(e.Key)
		}
		if _, err := c.Register(e.Key, e.Value, opts); err != nil {
			return keys, fmt.Errorf("auto-register %s: %w", e.Path, err)
		}
		keys = append(keys, e.Key)
	}
	c.logger.Debug("components auto-registered", "pattern", pattern, "count", len(keys))
	return keys, nil
}
