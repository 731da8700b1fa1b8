package providers_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-qudo/framework/config"
	"github.com/km-arc/go-qudo/framework/container"
	"github.com/km-arc/go-qudo/framework/providers"
	"github.com/km-arc/go-qudo/framework/routing"
)

func boot(t *testing.T, ps ...container.ServiceProvider) *container.Container {
	t.Helper()
	c := container.New()
	reg := container.NewProviderRegistry(c)
	ctx := context.Background()
	for _, p := range ps {
		require.NoError(t, reg.Register(ctx, p))
	}
	require.NoError(t, reg.Boot(ctx))
	return c
}

func TestConfigServiceProvider(t *testing.T) {
	store := config.NewStore()
	require.NoError(t, store.Set("resource", "https://example.com"))

	c := boot(t, &providers.ConfigServiceProvider{Store: store})

	got, err := container.ResolveAs[*config.Store](context.Background(), c, providers.ConfigComponent)
	require.NoError(t, err)
	assert.Same(t, store, got)
}

func TestConfigServiceProvider_RequiresStore(t *testing.T) {
	err := container.NewProviderRegistry(container.New()).
		Register(context.Background(), &providers.ConfigServiceProvider{})
	assert.Error(t, err)
}

func TestRoutingServiceProvider_ServesIntrospectionAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metricsProvider := &providers.MetricsServiceProvider{Registry: reg}
	c := boot(t,
		&providers.RoutingServiceProvider{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))},
		metricsProvider,
	)
	require.NotNil(t, metricsProvider.Collector())

	router, err := container.ResolveAs[*routing.Router](context.Background(), c, providers.RouterComponent)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/components/router", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"built":true`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `qudo_component_builds_total{component="router"} 1`)
}

func TestRoutingServiceProvider_NeedsMetrics(t *testing.T) {
	c := boot(t, &providers.RoutingServiceProvider{})
	_, err := c.ResolveOrFail(context.Background(), providers.RouterComponent)
	assert.Error(t, err)
}

func TestMetricsServiceProvider_DefaultsRegistry(t *testing.T) {
	p := &providers.MetricsServiceProvider{}
	boot(t, p)
	assert.NotNil(t, p.Registry)
	assert.NotNil(t, p.Collector())
}
