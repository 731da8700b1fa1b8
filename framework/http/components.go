package http

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/km-arc/go-qudo/framework/container"
	"github.com/km-arc/go-qudo/framework/errdefs"
	"github.com/km-arc/go-qudo/framework/routing"
	"github.com/km-arc/go-qudo/framework/schema"
)

// ErrNotFinalizable reports an entry that owns no releasable target.
var ErrNotFinalizable = fmt.Errorf("%w: component can not be finalized", errdefs.ErrLifecycle)

// ComponentView is the JSON shape of a registered component.
type ComponentView struct {
	Name                 string         `json:"name"`
	ID                   string         `json:"id,omitempty"`
	Built                bool           `json:"built"`
	DependenciesResolved bool           `json:"dependencies_resolved"`
	Dependencies         []string       `json:"dependencies"`
	Config               map[string]any `json:"config,omitempty"`
}

// Optional capabilities of a container entry.
type (
	identified   interface{ ID() uuid.UUID }
	buildable    interface{ Built() bool }
	dependent    interface{ Dependencies() []string }
	configurable interface{ Config() schema.Config }
	finalizable  interface{ Finalize() error }
)

// Components serves read and lifecycle endpoints over one container.
//
//	GET  /components                  list
//	GET  /components/{name}           show
//	POST /components/{name}/resolve   build the target if needed
//	POST /components/{name}/finalize  release the target
type Components struct {
	c *container.Container
}

// NewComponents creates the handlers for c.
func NewComponents(c *container.Container) *Components {
	return &Components{c: c}
}

// Routes registers the endpoints under prefix, e.g. "/components".
func (h *Components) Routes(r *routing.Router, prefix string) {
	r.Prefix(prefix, func(r *routing.Router) {
		r.Get("/", h.Index)
		r.Get("/{name}", h.Show)
		r.Post("/{name}/resolve", h.Resolve)
		r.Post("/{name}/finalize", h.Finalize)
	})
}

// Index lists every component sorted by name.
func (h *Components) Index(w http.ResponseWriter, r *http.Request) {
	entries := h.c.Components()
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ComponentView, 0, len(names))
	for _, name := range names {
		out = append(out, View(name, entries[name]))
	}
	NewResponse(w).Success(out)
}

// Show describes a single component.
func (h *Components) Show(w http.ResponseWriter, r *http.Request) {
	name := routing.Param(r, "name")
	e, err := h.c.RetrieveOrFail(name)
	if err != nil {
		NewResponse(w).Fail(err)
		return
	}
	NewResponse(w).Success(View(name, e))
}

// Resolve builds the component target when it is not built yet.
func (h *Components) Resolve(w http.ResponseWriter, r *http.Request) {
	name := routing.Param(r, "name")
	res := NewResponse(w)
	if _, err := h.c.ResolveOrFail(r.Context(), name); err != nil {
		res.Fail(err)
		return
	}
	res.Success(View(name, h.c.Retrieve(name)))
}

// Finalize releases the component target.
func (h *Components) Finalize(w http.ResponseWriter, r *http.Request) {
	name := routing.Param(r, "name")
	res := NewResponse(w)
	e, err := h.c.RetrieveOrFail(name)
	if err != nil {
		res.Fail(err)
		return
	}
	f, ok := e.(finalizable)
	if !ok {
		res.Fail(fmt.Errorf("%w: %q", ErrNotFinalizable, name))
		return
	}
	if err := f.Finalize(); err != nil {
		res.Fail(err)
		return
	}
	res.Success(View(name, e))
}

// View describes e using whatever capabilities it has.
func View(name string, e container.Entry) ComponentView {
	v := ComponentView{
		Name:                 name,
		DependenciesResolved: e.DependenciesResolved(),
		Dependencies:         []string{},
	}
	if x, ok := e.(identified); ok {
		v.ID = x.ID().String()
	}
	if x, ok := e.(buildable); ok {
		v.Built = x.Built()
	}
	if x, ok := e.(dependent); ok && len(x.Dependencies()) > 0 {
		v.Dependencies = x.Dependencies()
	}
	if x, ok := e.(configurable); ok {
		v.Config = x.Config().Map()
	}
	return v
}
