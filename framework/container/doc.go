// Package container provides the component registry and the ServiceProvider
// system.
//
// # Overview
//
// A Container maps names to components. It is also the dependency source of
// every component it instantiates, so a component's declared dependencies are
// looked up by name in the live store when the component is first built. The
// order of registration therefore does not matter: a dependency only has to
// be registered by the time its consumer is resolved.
//
// # Container Lifecycle
//
//  1. Create:    c := container.New()
//  2. Register:  c.Register("cache", cache.Definition, opts), or a provider
//  3. Resolve:   target, err := c.ResolveOrFail(ctx, "cache")
//  4. Shutdown:  c.Shutdown(ctx) finalizes dependents before dependencies
//
// # Registration
//
//	// A definition is instantiated with options; unknown keys are dropped.
//	c.Register("cache", cache.Definition, map[string]any{"port": 7000})
//
//	// A ready instance keeps its own source once resolved.
//	comp, _ := component.New(client.Definition, map[string]any{"resource": url})
//	c.Register("client", comp, nil)
//
//	// Registering an existing name replaces the previous entry.
//
// # Lookup
//
//	c.Retrieve("cache")             // Entry or nil
//	c.RetrieveOrFail("cache")       // Entry or ErrNotFound
//	c.Resolve(ctx, "cache")         // target, or nil when unregistered
//	c.ResolveOrFail(ctx, "cache")   // target, or ErrNotFound
//	container.ResolveAs[*redis.Client](ctx, c, "cache")
//	c.Components()                  // copy of the store
//
// # Contextual Dependencies
//
//	// When "reports" needs "db", give it the replica instead.
//	c.When("reports").Needs("db").GiveComponent("db_replica")
//
// # Service Providers
//
//	type CacheProvider struct{ container.BaseProvider }
//
//	func (p *CacheProvider) Register(c *container.Container) error {
//	    _, err := c.Register("cache", cache.Definition, nil)
//	    return err
//	}
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(ctx, &CacheProvider{})
//	registry.Boot(ctx)
//
// # Auto Registration
//
//	keys, err := c.AutoRegister(catalog, "components/**", func(key string) map[string]any {
//	    return store.Options(key)
//	})
package container
