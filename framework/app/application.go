package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/km-arc/go-qudo/framework/config"
	"github.com/km-arc/go-qudo/framework/container"
	"github.com/km-arc/go-qudo/framework/errdefs"
	"github.com/km-arc/go-qudo/framework/providers"
	"github.com/km-arc/go-qudo/framework/routing"
)

// MasterContainer names the container the catalog is registered into.
const MasterContainer = "master"

var (
	ErrUndefinedPattern = fmt.Errorf("%w: component pattern is not defined", errdefs.ErrLifecycle)
	ErrAlreadyBooted    = fmt.Errorf("%w: application is already booted", errdefs.ErrLifecycle)
	ErrContainerExists  = fmt.Errorf("%w: container name is taken", errdefs.ErrRegistration)
)

// Application owns the configuration store, the named containers and the
// provider registry of the master container.
//
//	application := app.New(app.WithCatalog(catalog))
//	if err := application.Boot(ctx); err != nil { ... }
//	client, err := container.ResolveAs[*Client](ctx, application.Container(), "client")
type Application struct {
	mu sync.Mutex

	cfg   *config.Config
	store *config.Store

	containers map[string]*container.Container
	order      []string // container names in the order they were added

	registry *container.ProviderRegistry
	metrics  *prometheus.Registry

	catalog     container.Discoverer
	pattern     string
	patternSet  bool
	envFiles    []string
	configFiles []string
	logger      *slog.Logger

	booted bool
}

// Option configures an Application.
type Option func(*Application)

// WithCatalog sets where components are discovered at boot.
func WithCatalog(d container.Discoverer) Option {
	return func(a *Application) { a.catalog = d }
}

// WithPattern overrides APP_COMPONENTS. An empty pattern makes Boot fail.
func WithPattern(pattern string) Option {
	return func(a *Application) {
		a.pattern = pattern
		a.patternSet = true
	}
}

// WithLogger sets the application logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Application) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithEnvFiles sets the dotenv files read at New and Boot. Defaults to ".env".
func WithEnvFiles(files ...string) Option {
	return func(a *Application) { a.envFiles = append(a.envFiles, files...) }
}

// WithConfigFile adds a YAML file of component options loaded at Boot.
func WithConfigFile(path string) Option {
	return func(a *Application) { a.configFiles = append(a.configFiles, path) }
}

// WithRegistry sets the Prometheus registry the metrics are registered with.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *Application) {
		if reg != nil {
			a.metrics = reg
		}
	}
}

// New creates an unbooted application. The framework providers are
// registered on the master container right away.
func New(opts ...Option) (*Application, error) {
	a := &Application{
		store:      config.NewStore(),
		containers: make(map[string]*container.Container),
		metrics:    prometheus.NewRegistry(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if len(a.envFiles) == 0 {
		a.envFiles = []string{".env"}
	}

	a.cfg = config.Load(a.envFiles...)
	if !a.patternSet {
		a.pattern = a.cfg.App.Pattern
	}

	master := container.New(container.WithLogger(a.logger))
	a.containers[MasterContainer] = master
	a.order = append(a.order, MasterContainer)
	a.registry = container.NewProviderRegistry(master)

	ctx := context.Background()
	for _, p := range []container.ServiceProvider{
		&providers.ConfigServiceProvider{Store: a.store},
		&providers.MetricsServiceProvider{Registry: a.metrics, Namespace: "qudo"},
		&providers.RoutingServiceProvider{Logger: a.logger},
	} {
		if err := a.registry.Register(ctx, p); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// MustNew is like New but panics on error.
func MustNew(opts ...Option) *Application {
	a, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return a
}

// ── Boot ──────────────────────────────────────────────────────────────────────

// Boot loads the component options, registers every component the catalog
// discovers for the pattern into the master container and boots the
// providers. Options come from the process environment first, then the env
// files, then the YAML files; the first source to set a key wins.
//
// Boot is a no-op once it has succeeded.
func (a *Application) Boot(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.booted {
		return nil
	}
	return a.boot(ctx)
}

// BootOrFail is like Boot but fails with ErrAlreadyBooted on a second call.
func (a *Application) BootOrFail(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.booted {
		return ErrAlreadyBooted
	}
	return a.boot(ctx)
}

// boot must hold mu.
func (a *Application) boot(ctx context.Context) error {
	if a.pattern == "" {
		return ErrUndefinedPattern
	}
	if err := a.loadOptions(); err != nil {
		return err
	}

	if a.catalog != nil {
		keys, err := a.containers[MasterContainer].AutoRegister(a.catalog, a.pattern, a.store.Options)
		if err != nil {
			return fmt.Errorf("boot: %w", err)
		}
		a.logger.Info("components registered", "pattern", a.pattern, "components", keys)
	}

	if err := a.registry.Boot(ctx); err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	a.booted = true
	a.logger.Info("application booted", "app", a.cfg.App.Name, "env", a.cfg.App.Env)
	return nil
}

func (a *Application) loadOptions() error {
	prefix := a.cfg.App.Prefix
	a.store.LoadEnviron(prefix)

	var files []string
	for _, f := range a.envFiles {
		if _, err := os.Stat(f); err == nil {
			files = append(files, f)
		}
	}
	if len(files) > 0 {
		if err := a.store.LoadEnvFiles(prefix, files...); err != nil {
			return err
		}
	}

	for _, f := range a.configFiles {
		if err := a.store.LoadYAMLFile(f); err != nil {
			return err
		}
	}
	return nil
}

// Booted reports whether Boot has succeeded.
func (a *Application) Booted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.booted
}

// ── Providers ─────────────────────────────────────────────────────────────────

// Register adds a ServiceProvider to the master container. After Boot the
// provider is booted immediately.
func (a *Application) Register(ctx context.Context, p container.ServiceProvider) error {
	return a.registry.Register(ctx, p)
}

// ── Containers ────────────────────────────────────────────────────────────────

// AddContainer stores c under name. Names can be used once.
func (a *Application) AddContainer(name string, c *container.Container) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.containers[name]; ok {
		return fmt.Errorf("%w: %q", ErrContainerExists, name)
	}
	a.containers[name] = c
	a.order = append(a.order, name)
	return nil
}

// Container returns the master container.
func (a *Application) Container() *container.Container {
	c, _ := a.Lookup(MasterContainer)
	return c
}

// Lookup returns the container stored under name.
func (a *Application) Lookup(name string) (*container.Container, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.containers[name]
	return c, ok
}

// Containers returns the container names in sorted order.
func (a *Application) Containers() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.containers))
	for name := range a.containers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Config returns the typed application configuration.
func (a *Application) Config() *config.Config { return a.cfg }

// Store returns the component options store.
func (a *Application) Store() *config.Store { return a.store }

// Metrics returns the Prometheus registry.
func (a *Application) Metrics() *prometheus.Registry { return a.metrics }

// ── Shutdown ──────────────────────────────────────────────────────────────────

// Shutdown shuts down every container, the most recently added first and the
// master last. All containers are attempted; the errors are joined.
func (a *Application) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	cs := make([]*container.Container, 0, len(a.order))
	for i := len(a.order) - 1; i >= 0; i-- {
		cs = append(cs, a.containers[a.order[i]])
	}
	a.mu.Unlock()

	var errs []error
	for _, c := range cs {
		if err := c.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ── HTTP ──────────────────────────────────────────────────────────────────────

// Handler resolves the router component: introspection under /components and
// metrics under /metrics.
func (a *Application) Handler(ctx context.Context) (http.Handler, error) {
	return container.ResolveAs[*routing.Router](ctx, a.Container(), providers.RouterComponent)
}

// Run boots the application and serves HTTP on APP_ADDR until ctx is done,
// then shuts down the server and the components.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Boot(ctx); err != nil {
		return err
	}
	h, err := a.Handler(ctx)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.App.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		a.logger.Info("server starting", "app", a.cfg.App.Name, "addr", srv.Addr, "env", a.cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.Join(fmt.Errorf("serve: %w", err), a.Shutdown(context.Background()))
	case <-ctx.Done():
	}

	a.logger.Info("server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return errors.Join(srv.Shutdown(shutdownCtx), a.Shutdown(shutdownCtx))
}
