package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/km-arc/go-qudo/framework/component"
	"github.com/km-arc/go-qudo/framework/config"
	"github.com/km-arc/go-qudo/framework/container"
	"github.com/km-arc/go-qudo/framework/dependency"
	gohttp "github.com/km-arc/go-qudo/framework/http"
	"github.com/km-arc/go-qudo/framework/metrics"
	"github.com/km-arc/go-qudo/framework/routing"
	"github.com/km-arc/go-qudo/framework/schema"
)

// Names of the components registered by the framework providers.
const (
	ConfigComponent  = "config"
	MetricsComponent = "metrics"
	RouterComponent  = "router"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider exposes the application configuration as a component.
//
// Registered components:
//   - "config" → *config.Store
type ConfigServiceProvider struct {
	container.BaseProvider
	Store *config.Store
}

func (p *ConfigServiceProvider) Register(c *container.Container) error {
	if p.Store == nil {
		return fmt.Errorf("config provider: nil store")
	}
	return registerValue(c, ConfigComponent, p.Store)
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider instruments the container and exposes the metrics
// endpoint handler.
//
// Registered components:
//   - "metrics" → http.Handler serving Registry
type MetricsServiceProvider struct {
	container.BaseProvider
	Registry  *prometheus.Registry
	Namespace string // default: "qudo"

	collector *metrics.Collector
}

func (p *MetricsServiceProvider) Register(c *container.Container) error {
	if p.Registry == nil {
		p.Registry = prometheus.NewRegistry()
	}
	ns := p.Namespace
	if ns == "" {
		ns = "qudo"
	}

	col, err := metrics.NewCollector(p.Registry, ns)
	if err != nil {
		return fmt.Errorf("metrics provider: %w", err)
	}
	p.collector = col
	col.Instrument(c)

	return registerValue(c, MetricsComponent, metrics.Handler(p.Registry))
}

// Collector returns the collector created by Register.
func (p *MetricsServiceProvider) Collector() *metrics.Collector { return p.collector }

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router with the introspection
// endpoints and the metrics handler mounted.
//
// Registered components:
//   - "router" → *routing.Router, depends on "metrics"
type RoutingServiceProvider struct {
	container.BaseProvider
	Logger *slog.Logger
	Prefix string // default: "/components"
}

func (p *RoutingServiceProvider) Register(c *container.Container) error {
	prefix := p.Prefix
	if prefix == "" {
		prefix = "/components"
	}
	logger := p.Logger

	def, err := component.Define(RouterComponent,
		component.WithDependencies(MetricsComponent),
		component.WithBuilder(func(_ context.Context, _ schema.Config, deps dependency.Map) (any, error) {
			h, err := dependency.Get[http.Handler](deps, MetricsComponent)
			if err != nil {
				return nil, err
			}
			r := routing.New(routing.WithLogger(logger))
			r.Handle("/metrics", h)
			gohttp.NewComponents(c).Routes(r, prefix)
			return r, nil
		}),
	)
	if err != nil {
		return err
	}
	_, err = c.Register(RouterComponent, def, nil)
	return err
}

// ── helpers ─────────────────────────────────────────────────────────────────

// registerValue registers a component whose target is v.
func registerValue(c *container.Container, name string, v any) error {
	def, err := component.Define(name,
		component.WithBuilder(func(context.Context, schema.Config, dependency.Map) (any, error) {
			return v, nil
		}),
	)
	if err != nil {
		return err
	}
	_, err = c.Register(name, def, nil)
	return err
}
