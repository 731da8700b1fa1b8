package container_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/km-arc/go-qudo/framework/component"
	"github.com/km-arc/go-qudo/framework/container"
	"github.com/km-arc/go-qudo/framework/dependency"
	"github.com/km-arc/go-qudo/framework/discovery"
	"github.com/km-arc/go-qudo/framework/errdefs"
	"github.com/km-arc/go-qudo/framework/factory"
	"github.com/km-arc/go-qudo/framework/schema"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

// service is the target of the fixture definitions.
type service struct {
	name string
	cfg  schema.Config
	deps dependency.Map
}

func define(name string, deps ...string) *component.Definition {
	return component.MustDefine(name,
		component.WithProperties(schema.Prop("port", schema.Default(6379))),
		component.WithDependencies(deps...),
		component.WithBuilder(func(_ context.Context, cfg schema.Config, d dependency.Map) (any, error) {
			return &service{name: name, cfg: cfg, deps: d}, nil
		}),
	)
}

// spyEntry is an Entry that records injections.
type spyEntry struct {
	injected int
	resolved bool
	source   dependency.Source
}

func (s *spyEntry) Resolve(context.Context) (any, error) { return "spy", nil }
func (s *spyEntry) DependenciesResolved() bool            { return s.resolved }
func (s *spyEntry) InjectDependencies(src dependency.Source) error {
	s.injected++
	s.source = src
	return nil
}

// ── suite ─────────────────────────────────────────────────────────────────────

type ContainerSuite struct {
	suite.Suite
	ctx context.Context
	c   *container.Container
}

func (s *ContainerSuite) SetupTest() {
	s.ctx = context.Background()
	s.c = container.New()
}

func TestContainerSuite(t *testing.T) {
	suite.Run(t, new(ContainerSuite))
}

func (s *ContainerSuite) TestRegisterDefinitionInstantiatesWithOptions() {
	entry, err := s.c.Register("cache", define("cache"), map[string]any{"port": 7000, "extra": 1})
	s.Require().NoError(err)

	comp, ok := entry.(*component.Component)
	s.Require().True(ok)
	s.Equal(7000, comp.Config().Value("port"))
	s.False(comp.Config().Has("extra"))
	s.False(comp.Built(), "registration does not build")
	s.Same(entry, s.c.Retrieve("cache"))
}

func (s *ContainerSuite) TestResolveInjectsExactlyTheDeclaredDependencies() {
	_, err := s.c.Register("client", define("client"), nil)
	s.Require().NoError(err)
	_, err = s.c.Register("cache", define("cache"), nil)
	s.Require().NoError(err)
	_, err = s.c.Register("api", define("api", "client", "cache"), nil)
	s.Require().NoError(err)

	target, err := s.c.ResolveOrFail(s.ctx, "api")
	s.Require().NoError(err)

	api := target.(*service)
	s.Equal([]string{"cache", "client"}, api.deps.Names())
	client, _ := api.deps.Get("client")
	s.Equal("client", client.(*service).name)
}

func (s *ContainerSuite) TestDependencyRegisteredLaterIsVisible() {
	_, err := s.c.Register("k", define("k", "client"), nil)
	s.Require().NoError(err)

	_, err = s.c.Resolve(s.ctx, "k")
	s.Require().Error(err)
	s.ErrorIs(err, dependency.ErrMissingDependency)
	s.True(errdefs.IsDependency(err))
	s.Contains(err.Error(), `"client"`)

	_, err = s.c.Register("client", define("client"), nil)
	s.Require().NoError(err)

	target, err := s.c.Resolve(s.ctx, "k")
	s.Require().NoError(err)
	dep, ok := target.(*service).deps.Get("client")
	s.Require().True(ok)
	s.Equal("client", dep.(*service).name)
	s.True(s.c.Retrieve("client").(*component.Component).Built())
}

func (s *ContainerSuite) TestRegisterInstanceInjectsOnce() {
	spy := &spyEntry{}

	entry, err := s.c.Register("spy", spy, nil)
	s.Require().NoError(err)

	s.Same(spy, entry)
	s.Same(spy, s.c.Retrieve("spy"))
	s.Equal(1, spy.injected)
	s.NotNil(spy.source)
}

func (s *ContainerSuite) TestRegisterResolvedInstanceSkipsInjection() {
	spy := &spyEntry{resolved: true}

	_, err := s.c.Register("spy", spy, nil)
	s.Require().NoError(err)
	s.Zero(spy.injected)
}

func (s *ContainerSuite) TestRegisterResolvedComponentKeepsItsDependencies() {
	comp, err := component.New(define("api", "clock"), map[string]any{
		component.DependenciesKey: dependency.MapSource{"clock": dependency.Value("own")},
	})
	s.Require().NoError(err)
	_, err = comp.ResolveDependencies(s.ctx)
	s.Require().NoError(err)

	_, err = s.c.Register("api", comp, nil)
	s.Require().NoError(err)

	target, err := s.c.ResolveOrFail(s.ctx, "api")
	s.Require().NoError(err)
	v, _ := target.(*service).deps.Get("clock")
	s.Equal("own", v)
}

func (s *ContainerSuite) TestRegisterRejectsValuesWithoutInjection() {
	for _, input := range []any{
		42,
		"cache",
		factory.New(func(context.Context) (any, error) { return 1, nil }),
		nil,
	} {
		_, err := s.c.Register("bad", input, nil)
		s.ErrorIs(err, container.ErrInvalidComponent, "%T", input)
		s.True(errdefs.IsRegistration(err))
	}
	s.Nil(s.c.Retrieve("bad"))
}

func (s *ContainerSuite) TestRegisterPropagatesConfigErrors() {
	def := component.MustDefine("client", component.WithProperties(schema.Prop("resource", schema.Required())))

	_, err := s.c.Register("client", def, nil)
	s.ErrorIs(err, schema.ErrMissingRequiredProperty)
	s.False(s.c.Has("client"))
}

func (s *ContainerSuite) TestReRegisterOverwritesSilently() {
	first, err := s.c.Register("cache", define("cache"), map[string]any{"port": 1})
	s.Require().NoError(err)
	second, err := s.c.Register("cache", define("cache"), map[string]any{"port": 2})
	s.Require().NoError(err)

	s.NotSame(first, second)
	s.Same(second, s.c.Retrieve("cache"))
	s.Equal([]string{"cache"}, s.c.Names())

	target, err := s.c.ResolveOrFail(s.ctx, "cache")
	s.Require().NoError(err)
	s.Equal(2, target.(*service).cfg.Value("port"))
}

func (s *ContainerSuite) TestLookupVariants() {
	s.Nil(s.c.Retrieve("nope"))

	_, err := s.c.RetrieveOrFail("nope")
	s.ErrorIs(err, container.ErrNotFound)
	s.True(errdefs.IsNotFound(err))

	target, err := s.c.Resolve(s.ctx, "nope")
	s.NoError(err)
	s.Nil(target)

	_, err = s.c.ResolveOrFail(s.ctx, "nope")
	s.ErrorIs(err, container.ErrNotFound)
}

func (s *ContainerSuite) TestResolveIsIdempotent() {
	_, err := s.c.Register("cache", define("cache"), nil)
	s.Require().NoError(err)

	a, err := s.c.Resolve(s.ctx, "cache")
	s.Require().NoError(err)
	b, err := s.c.Resolve(s.ctx, "cache")
	s.Require().NoError(err)
	s.Same(a, b)
}

func (s *ContainerSuite) TestComponentsReturnsACopy() {
	_, err := s.c.Register("cache", define("cache"), nil)
	s.Require().NoError(err)

	snapshot := s.c.Components()
	delete(snapshot, "cache")
	snapshot["ghost"] = &spyEntry{}

	s.True(s.c.Has("cache"))
	s.False(s.c.Has("ghost"))
}

func (s *ContainerSuite) TestResolveAs() {
	_, err := s.c.Register("cache", define("cache"), nil)
	s.Require().NoError(err)

	svc, err := container.ResolveAs[*service](s.ctx, s.c, "cache")
	s.Require().NoError(err)
	s.Equal("cache", svc.name)

	_, err = container.ResolveAs[string](s.ctx, s.c, "cache")
	s.Error(err)

	_, err = container.ResolveAs[*service](s.ctx, s.c, "nope")
	s.ErrorIs(err, container.ErrNotFound)
}

func (s *ContainerSuite) TestContextualDependencies() {
	_, err := s.c.Register("cache", define("cache"), nil)
	s.Require().NoError(err)
	_, err = s.c.Register("session_cache", define("session_cache"), nil)
	s.Require().NoError(err)
	_, err = s.c.Register("api", define("api", "cache", "region"), nil)
	s.Require().NoError(err)
	_, err = s.c.Register("worker", define("worker", "cache"), nil)
	s.Require().NoError(err)

	s.c.When("api").Needs("cache").GiveComponent("session_cache")
	s.c.When("api").Needs("region").GiveValue("eu-west-1")

	api, err := container.ResolveAs[*service](s.ctx, s.c, "api")
	s.Require().NoError(err)
	cache, _ := api.deps.Get("cache")
	s.Equal("session_cache", cache.(*service).name)
	region, _ := api.deps.Get("region")
	s.Equal("eu-west-1", region)

	worker, err := container.ResolveAs[*service](s.ctx, s.c, "worker")
	s.Require().NoError(err)
	cache, _ = worker.deps.Get("cache")
	s.Equal("cache", cache.(*service).name)
}

func (s *ContainerSuite) TestCallbacks() {
	var registered, resolved []string
	s.c.AfterRegistering(func(name string, _ container.Entry) { registered = append(registered, name) })
	s.c.AfterResolving(func(name string, _ any) { resolved = append(resolved, name) })

	_, _ = s.c.Register("client", define("client"), nil)
	_, _ = s.c.Register("api", define("api", "client"), nil)
	_, err := s.c.Resolve(s.ctx, "api")
	s.Require().NoError(err)

	s.Equal([]string{"client", "api"}, registered)
	s.Equal([]string{"api"}, resolved, "dependencies built on the way do not fire")
}

// ── shutdown ──────────────────────────────────────────────────────────────────

func finalizing(name string, log *[]string, deps ...string) *component.Definition {
	return component.MustDefine(name,
		component.WithDependencies(deps...),
		component.WithBuilder(func(context.Context, schema.Config, dependency.Map) (any, error) {
			return name, nil
		}),
		component.WithFinalizer(func(any) error {
			*log = append(*log, name)
			if name == "broken" {
				return errors.New("close failed")
			}
			return nil
		}),
	)
}

func (s *ContainerSuite) TestShutdownFinalizesDependentsFirst() {
	var log []string
	_, _ = s.c.Register("api", finalizing("api", &log, "db", "cache"), nil)
	_, _ = s.c.Register("cache", finalizing("cache", &log, "db"), nil)
	_, _ = s.c.Register("db", finalizing("db", &log), nil)
	_, _ = s.c.Register("idle", finalizing("idle", &log), nil)

	_, err := s.c.ResolveOrFail(s.ctx, "api")
	s.Require().NoError(err)

	s.Require().NoError(s.c.Shutdown(s.ctx))
	s.Equal([]string{"api", "cache", "db"}, log, "idle was never built")

	for _, name := range []string{"api", "cache", "db"} {
		s.False(s.c.Retrieve(name).(*component.Component).Built(), name)
	}
}

func (s *ContainerSuite) TestShutdownJoinsErrors() {
	var log []string
	_, _ = s.c.Register("broken", finalizing("broken", &log), nil)
	_, _ = s.c.Register("db", finalizing("db", &log), nil)
	_, _ = s.c.Resolve(s.ctx, "db")
	_, _ = s.c.Resolve(s.ctx, "broken")

	err := s.c.Shutdown(s.ctx)
	s.Require().Error(err)
	s.ErrorIs(err, factory.ErrFinalizationFailure)
	s.Contains(err.Error(), "finalize broken")
	s.Equal([]string{"broken", "db"}, log)
}

func (s *ContainerSuite) TestShutdownHonorsContext() {
	var log []string
	_, _ = s.c.Register("db", finalizing("db", &log), nil)
	_, _ = s.c.Resolve(s.ctx, "db")

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	err := s.c.Shutdown(ctx)
	s.ErrorIs(err, context.Canceled)
	s.Empty(log)
}

func (s *ContainerSuite) TestReRegisteringSameEntryFinalizesOnce() {
	var log []string
	entry, err := s.c.Register("db", finalizing("db", &log), nil)
	s.Require().NoError(err)
	_, err = s.c.Register("db", entry, nil)
	s.Require().NoError(err)
	_, err = s.c.Register("alias", entry, nil)
	s.Require().NoError(err)

	_, err = s.c.ResolveOrFail(s.ctx, "db")
	s.Require().NoError(err)
	s.Require().NoError(s.c.Shutdown(s.ctx))
	s.Equal([]string{"db"}, log)
}

func (s *ContainerSuite) TestShutdownFinalizesReplacedEntries() {
	var log []string
	old, err := s.c.Register("conn", finalizing("conn", &log), nil)
	s.Require().NoError(err)
	_, err = s.c.ResolveOrFail(s.ctx, "conn")
	s.Require().NoError(err)

	_, err = s.c.Register("conn", finalizing("conn", &log), nil)
	s.Require().NoError(err)
	s.NotSame(old, s.c.Retrieve("conn"))

	s.Require().NoError(s.c.Shutdown(s.ctx))
	s.Equal([]string{"conn"}, log, "the replacement was never built")
	s.False(old.(*component.Component).Built())
}

func (s *ContainerSuite) TestReRegisteringReplacedEntryRestoresIt() {
	var log []string
	old, _ := s.c.Register("conn", finalizing("conn", &log), nil)
	_, _ = s.c.Resolve(s.ctx, "conn")
	_, _ = s.c.Register("conn", define("conn"), nil)
	_, err := s.c.Register("conn", old, nil)
	s.Require().NoError(err)

	s.Require().NoError(s.c.Shutdown(s.ctx))
	s.Equal([]string{"conn"}, log)
}

func (s *ContainerSuite) TestRegisterRejectsTypedNil() {
	var comp *component.Component
	_, err := s.c.Register("broken", comp, nil)
	s.ErrorIs(err, container.ErrInvalidComponent)
	s.False(s.c.Has("broken"))
}

// ── remove ────────────────────────────────────────────────────────────────────

func (s *ContainerSuite) TestRemoveFinalizesEntry() {
	var log []string
	_, _ = s.c.Register("db", finalizing("db", &log), nil)
	_, err := s.c.ResolveOrFail(s.ctx, "db")
	s.Require().NoError(err)

	removed, err := s.c.Remove("db")
	s.Require().NoError(err)
	s.False(s.c.Has("db"))
	s.NotContains(s.c.Names(), "db")
	s.False(removed.(*component.Component).Built())
	s.Equal([]string{"db"}, log)

	s.Require().NoError(s.c.Shutdown(s.ctx))
	s.Equal([]string{"db"}, log, "removed entries leave the shutdown order")
}

func (s *ContainerSuite) TestRemoveUnknown() {
	_, err := s.c.Remove("ghost")
	s.ErrorIs(err, container.ErrNotFound)
	s.True(errdefs.IsNotFound(err))
}

func (s *ContainerSuite) TestRemoveKeepsSharedEntryAlive() {
	var log []string
	entry, _ := s.c.Register("db", finalizing("db", &log), nil)
	_, _ = s.c.Register("primary", entry, nil)
	_, err := s.c.ResolveOrFail(s.ctx, "db")
	s.Require().NoError(err)

	_, err = s.c.Remove("db")
	s.Require().NoError(err)
	s.Empty(log)
	s.True(entry.(*component.Component).Built())

	s.Require().NoError(s.c.Shutdown(s.ctx))
	s.Equal([]string{"db"}, log)
}

func (s *ContainerSuite) TestRemoveReportsFinalizerFailure() {
	var log []string
	_, _ = s.c.Register("broken", finalizing("broken", &log), nil)
	_, _ = s.c.Resolve(s.ctx, "broken")

	removed, err := s.c.Remove("broken")
	s.Require().Error(err)
	s.NotNil(removed)
	s.ErrorIs(err, factory.ErrFinalizationFailure)
	s.False(s.c.Has("broken"))
}

// ── auto registration ─────────────────────────────────────────────────────────

func TestContainer_AutoRegister(t *testing.T) {
	catalog := discovery.NewCatalog()
	catalog.MustAdd("components/Cache", define("cache"))
	catalog.MustAdd("components/http/Client", define("client"))
	catalog.MustAdd("other/Skip", define("skip"))

	c := container.New()
	var asked []string
	keys, err := c.AutoRegister(catalog, "components/**", func(key string) map[string]any {
		asked = append(asked, key)
		return map[string]any{"port": 7000}
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"components_cache", "components_http_client"}, keys)
	assert.Equal(t, keys, asked)
	names := c.Names()
	sort.Strings(names)
	assert.Equal(t, keys, names)

	target, err := c.ResolveOrFail(context.Background(), "components_cache")
	require.NoError(t, err)
	assert.Equal(t, 7000, target.(*service).cfg.Value("port"))
}

func TestContainer_AutoRegisterRejectsNonComponents(t *testing.T) {
	catalog := discovery.NewCatalog()
	catalog.MustAdd("a", define("a"))
	catalog.MustAdd("b", "not a component")

	c := container.New()
	keys, err := c.AutoRegister(catalog, "*", nil)
	assert.ErrorIs(t, err, container.ErrInvalidComponent)
	assert.Equal(t, []string{"a"}, keys)
}

func TestContainer_AutoRegisterBadPattern(t *testing.T) {
	_, err := container.New().AutoRegister(discovery.NewCatalog(), "[", nil)
	assert.ErrorIs(t, err, discovery.ErrBadPattern)
}
