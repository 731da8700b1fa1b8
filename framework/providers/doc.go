// Package providers holds the service providers every Application registers
// on its master container before booting.
//
//	"config"  → *config.Store
//	"metrics" → http.Handler for the Prometheus registry
//	"router"  → *routing.Router with /components and /metrics
package providers
