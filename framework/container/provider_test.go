package container_test

import (
	"context"
	"errors"
	"testing"

	"github.com/km-arc/go-qudo/framework/container"
)

// ── stub providers ────────────────────────────────────────────────────────────

type cacheProvider struct {
	container.BaseProvider
	registerCalls int
	bootCalls     int
	bootedTarget  any
}

func (p *cacheProvider) Register(c *container.Container) error {
	p.registerCalls++
	_, err := c.Register("cache", define("cache"), nil)
	return err
}

func (p *cacheProvider) Boot(ctx context.Context, c *container.Container) error {
	p.bootCalls++
	target, err := c.ResolveOrFail(ctx, "cache")
	p.bootedTarget = target
	return err
}

// apiProvider registers a component that depends on the cache provider's.
type apiProvider struct {
	container.BaseProvider
}

func (p *apiProvider) Register(c *container.Container) error {
	_, err := c.Register("api", define("api", "cache"), nil)
	return err
}

type failingProvider struct {
	container.BaseProvider
	err error
}

func (p *failingProvider) Register(*container.Container) error { return p.err }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

func TestRegistry_RegisterCalledImmediately(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &cacheProvider{}
	if err := reg.Register(context.Background(), p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if p.registerCalls != 1 {
		t.Errorf("Register() calls: got %d want 1", p.registerCalls)
	}
	if !c.Has("cache") {
		t.Error("provider components should be registered before Boot()")
	}
}

func TestRegistry_BootCalledAfterBoot(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)
	ctx := context.Background()

	p := &cacheProvider{}
	_ = reg.Register(ctx, p)

	if p.bootCalls != 0 {
		t.Error("Boot() should NOT be called before registry.Boot()")
	}
	if err := reg.Boot(ctx); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	if p.bootCalls != 1 {
		t.Errorf("Boot() calls: got %d want 1", p.bootCalls)
	}
	if p.bootedTarget == nil {
		t.Error("Boot() should be able to resolve registered components")
	}
}

func TestRegistry_OrderIndependentDependencies(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)
	ctx := context.Background()

	_ = reg.Register(ctx, &apiProvider{})
	_ = reg.Register(ctx, &cacheProvider{})
	_ = reg.Boot(ctx)

	if _, err := c.ResolveOrFail(ctx, "api"); err != nil {
		t.Errorf("api should resolve its cache dependency: %v", err)
	}
}

func TestRegistry_Boot_IdempotentCallsAreIgnored(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)
	ctx := context.Background()

	p := &cacheProvider{}
	_ = reg.Register(ctx, p)

	_ = reg.Boot(ctx)
	_ = reg.Boot(ctx)

	if !reg.Booted() {
		t.Error("Booted() should be true after Boot()")
	}
	if p.bootCalls != 1 {
		t.Errorf("Boot() calls: got %d want 1", p.bootCalls)
	}
}

func TestRegistry_Booted_FalseBeforeBoot(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())
	if reg.Booted() {
		t.Error("Booted() should be false before Boot()")
	}
}

func TestRegistry_DuplicateRegister_Ignored(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())
	ctx := context.Background()

	p := &cacheProvider{}
	_ = reg.Register(ctx, p)
	_ = reg.Register(ctx, p)

	if p.registerCalls != 1 {
		t.Errorf("Register() calls: got %d want 1", p.registerCalls)
	}
	if len(reg.Providers()) != 1 {
		t.Errorf("Providers(): got %d want 1", len(reg.Providers()))
	}
}

func TestRegistry_RegisterErrorIsReturned(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())
	boom := errors.New("boom")

	err := reg.Register(context.Background(), &failingProvider{err: boom})
	if !errors.Is(err, boom) {
		t.Errorf("got %v want wrapped boom", err)
	}
	if len(reg.Providers()) != 0 {
		t.Error("failed provider should not be listed")
	}
}

func TestRegistry_ProviderFunc(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	fn := container.ProviderFunc(func(c *container.Container) error {
		_, err := c.Register("client", define("client"), nil)
		return err
	})
	if err := reg.Register(context.Background(), fn); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !c.Has("client") {
		t.Error("ProviderFunc should register its component")
	}
	if err := reg.Boot(context.Background()); err != nil {
		t.Errorf("ProviderFunc Boot should be a no-op: %v", err)
	}
}

// ── BaseProvider defaults ─────────────────────────────────────────────────────

func TestBaseProvider_Defaults(t *testing.T) {
	var p container.BaseProvider
	if err := p.Boot(context.Background(), container.New()); err != nil {
		t.Errorf("BaseProvider.Boot() should return nil, got %v", err)
	}
}

// ── Boot after registration (late provider) ───────────────────────────────────

func TestRegistry_RegisterAfterBoot_BootsImmediately(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())
	ctx := context.Background()
	_ = reg.Boot(ctx)

	p := &cacheProvider{}
	_ = reg.Register(ctx, p)

	if p.bootCalls != 1 {
		t.Error("provider registered after Boot() should be booted immediately")
	}
}
