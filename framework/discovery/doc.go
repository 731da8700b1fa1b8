// Package discovery provides the Catalog, an explicit manifest from which an
// application auto-registers its components.
package discovery
