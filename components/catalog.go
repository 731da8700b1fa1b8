// Package components holds the demo components and the catalog that lists
// them for discovery.
package components

import "github.com/km-arc/go-qudo/framework/discovery"

// Catalog lists every component of the demo application.
//
//	cache  → *Cache
//	client → *Client, depends on "cache"
var Catalog = discovery.NewCatalog()

func init() {
	Catalog.MustAdd("cache", CacheDefinition)
	Catalog.MustAdd("client", ClientDefinition)
}
