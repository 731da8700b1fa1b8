// Package metrics exports component lifecycle metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	col, err := metrics.NewCollector(reg, "qudo")
//	col.Instrument(c)
//	router.Handle("/metrics", metrics.Handler(reg))
package metrics

import (
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-qudo/framework/container"
	"github.com/km-arc/go-qudo/framework/factory"
)

// Collector holds the lifecycle metrics of every instrumented component.
type Collector struct {
	builds        *prometheus.CounterVec   // by component
	finalizations *prometheus.CounterVec   // by component
	buildDuration *prometheus.HistogramVec // by component
	built         *prometheus.GaugeVec     // 1 while the target is live

	mu       sync.Mutex
	started  map[string]time.Time
	attached map[attachment]bool
}

// attachment identifies an entry instrumented under a name.
type attachment struct {
	hooks factory.Hookable
	name  string
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	c := &Collector{
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "component",
			Name:      "builds_total",
			Help:      "Total number of component targets built",
		}, []string{"component"}),

		finalizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "component",
			Name:      "finalizations_total",
			Help:      "Total number of component targets finalized",
		}, []string{"component"}),

		buildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "component",
			Name:      "build_duration_seconds",
			Help:      "Component build duration in seconds, dependencies included",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5},
		}, []string{"component"}),

		built: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "component",
			Name:      "built",
			Help:      "Whether the component target is currently built (1) or not (0)",
		}, []string{"component"}),

		started:  make(map[string]time.Time),
		attached: make(map[attachment]bool),
	}

	for _, col := range []prometheus.Collector{c.builds, c.finalizations, c.buildDuration, c.built} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Instrument attaches lifecycle hooks to every entry of c, and to every
// entry registered afterwards. Entries that do not accept hooks are skipped.
func (col *Collector) Instrument(c *container.Container) {
	for name, e := range c.Components() {
		col.Attach(name, e)
	}
	c.AfterRegistering(func(name string, e container.Entry) {
		col.Attach(name, e)
	})
}

// Attach instruments a single entry under name. It reports whether the
// entry accepted hooks. Attaching the same entry under the same name again
// is a no-op.
func (col *Collector) Attach(name string, e any) bool {
	h, ok := e.(factory.Hookable)
	if !ok {
		return false
	}
	if reflect.TypeOf(h).Comparable() {
		key := attachment{hooks: h, name: name}
		col.mu.Lock()
		seen := col.attached[key]
		col.attached[key] = true
		col.mu.Unlock()
		if seen {
			return true
		}
	}
	col.built.WithLabelValues(name).Set(0)

	h.AddHook(factory.BeforeBuild, func(any) {
		col.mu.Lock()
		col.started[name] = time.Now()
		col.mu.Unlock()
	})
	h.AddHook(factory.AfterBuild, func(any) {
		col.mu.Lock()
		start, ok := col.started[name]
		delete(col.started, name)
		col.mu.Unlock()

		if ok {
			col.buildDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		}
		col.builds.WithLabelValues(name).Inc()
		col.built.WithLabelValues(name).Set(1)
	})
	h.AddHook(factory.AfterFinalize, func(any) {
		col.finalizations.WithLabelValues(name).Inc()
		col.built.WithLabelValues(name).Set(0)
	})
	return true
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
