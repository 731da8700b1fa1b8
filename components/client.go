package components

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/km-arc/go-qudo/framework/component"
	"github.com/km-arc/go-qudo/framework/dependency"
	"github.com/km-arc/go-qudo/framework/schema"
)

// ClientDefinition describes an HTTP client bound to one resource. Successful
// GET responses are kept in the "cache" component.
var ClientDefinition = component.MustDefine("client",
	component.WithProperties(
		schema.Prop("resource", schema.Required(), schema.Rules("url")),
		schema.Prop("timeout", schema.Default("10s"), schema.OfKind(schema.Duration)),
	),
	component.WithDependencies("cache"),
	component.WithBuilder(func(_ context.Context, cfg schema.Config, deps dependency.Map) (any, error) {
		cache, err := dependency.Get[*Cache](deps, "cache")
		if err != nil {
			return nil, err
		}
		return &Client{
			resource: strings.TrimRight(cfg.String("resource"), "/"),
			http:     &http.Client{Timeout: cfg.Duration("timeout")},
			cache:    cache,
		}, nil
	}),
	component.WithFinalizer(func(t any) error {
		t.(*Client).http.CloseIdleConnections()
		return nil
	}),
)

// Client fetches paths below its resource.
type Client struct {
	resource string
	http     *http.Client
	cache    *Cache
}

func (c *Client) Resource() string { return c.resource }

// Get returns the body of resource+path, served from the cache when present.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	url := c.resource + "/" + strings.TrimLeft(path, "/")
	if body, ok := c.cache.Get(url); ok {
		return body, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("client: GET %s: %s", url, resp.Status)
	}
	if err := c.cache.Set(url, body); err != nil {
		return nil, err
	}
	return body, nil
}
