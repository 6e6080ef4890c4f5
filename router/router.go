// Package router provides an HTTP router that records every registration as
// an explicit route tree.
//
// Each call to Handle (or one of the method helpers) appends a *Leaf to the
// router stack and each call to Mount appends a *Branch, so documentation
// tooling can walk the tree with Stack instead of inspecting dispatcher
// internals. Request dispatch is delegated to chi, which is built lazily from
// the recorded tree on the first request.
//
// Path parameters use the ":name" form:
//
//	r := router.New()
//	r.Use(middleware.RequestID(middleware.RequestIDConfig{}))
//	r.Get("/users/:id", getUser)
//
//	admin := router.New()
//	admin.With(auth).Delete("/users/:id", deleteUser)
//	r.Mount("/admin", admin)
package router

import (
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

var standardMethods = []string{
	http.MethodConnect,
	http.MethodDelete,
	http.MethodGet,
	http.MethodHead,
	http.MethodOptions,
	http.MethodPatch,
	http.MethodPost,
	http.MethodPut,
	http.MethodTrace,
}

// Router records routes and sub-routers and serves them.
type Router struct {
	mu          sync.Mutex
	owner       *Router
	inline      []Middleware
	middlewares []Middleware
	stack       []Node

	notFound         http.Handler
	methodNotAllowed http.Handler
	handler          http.Handler
}

// New returns an empty router.
func New() *Router {
	return &Router{}
}

// base returns the router that owns the stack. Inline routers created by
// With share the stack of their owner.
func (r *Router) base() *Router {
	if r.owner != nil {
		return r.owner
	}

	return r
}

// Use appends middlewares applied to every route of the router, including
// routes of mounted sub-routers. On an inline router created by With the
// middlewares only apply to routes registered through it.
func (r *Router) Use(mws ...Middleware) {
	if r.owner != nil {
		r.inline = append(r.inline, mws...)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.middlewares = append(r.middlewares, mws...)
	r.handler = nil
}

// With returns an inline router sharing the stack of r. Routes registered
// through it carry the given middlewares in their own chain.
func (r *Router) With(mws ...Middleware) *Router {
	inline := make([]Middleware, 0, len(r.inline)+len(mws))
	inline = append(inline, r.inline...)
	inline = append(inline, mws...)

	return &Router{owner: r.base(), inline: inline}
}

// Handle registers handler for path and the given methods. Method names
// are uppercased. With no methods the route answers GET.
func (r *Router) Handle(path string, handler http.Handler, methods ...string) *Leaf {
	if len(methods) == 0 {
		methods = []string{http.MethodGet}
	}

	upper := make([]string, 0, len(methods))
	for _, m := range methods {
		m = strings.ToUpper(m)
		if !slices.Contains(upper, m) {
			upper = append(upper, m)
		}
	}

	leaf := &Leaf{
		Path:        path,
		Methods:     upper,
		Middlewares: slices.Clone(r.inline),
		Handler:     handler,
	}

	b := r.base()
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stack = append(b.stack, leaf)
	b.handler = nil

	return leaf
}

// HandleFunc registers a handler function for path and the given methods.
func (r *Router) HandleFunc(path string, fn http.HandlerFunc, methods ...string) *Leaf {
	return r.Handle(path, fn, methods...)
}

// Get registers a GET route. HEAD is recorded alongside it and served by
// the same handler.
func (r *Router) Get(path string, fn http.HandlerFunc) *Leaf {
	return r.Handle(path, fn, http.MethodGet, http.MethodHead)
}

// Post registers a POST route.
func (r *Router) Post(path string, fn http.HandlerFunc) *Leaf {
	return r.Handle(path, fn, http.MethodPost)
}

// Put registers a PUT route.
func (r *Router) Put(path string, fn http.HandlerFunc) *Leaf {
	return r.Handle(path, fn, http.MethodPut)
}

// Patch registers a PATCH route.
func (r *Router) Patch(path string, fn http.HandlerFunc) *Leaf {
	return r.Handle(path, fn, http.MethodPatch)
}

// Delete registers a DELETE route.
func (r *Router) Delete(path string, fn http.HandlerFunc) *Leaf {
	return r.Handle(path, fn, http.MethodDelete)
}

// Mount attaches sub under prefix and records it as a Branch. It panics
// when sub shares the stack of r.
func (r *Router) Mount(prefix string, sub *Router) *Branch {
	b := r.base()
	if sub != nil && sub.base() == b {
		panic("router: cannot mount a router inside itself at " + prefix)
	}

	branch := &Branch{Path: prefix, Router: sub}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.stack = append(b.stack, branch)
	b.handler = nil

	return branch
}

// Route creates a sub-router, lets fn populate it and mounts it under prefix.
func (r *Router) Route(prefix string, fn func(sub *Router)) *Router {
	sub := New()
	fn(sub)
	r.Mount(prefix, sub)

	return sub
}

// NotFound sets the handler used when no route matches.
func (r *Router) NotFound(h http.Handler) {
	b := r.base()
	b.mu.Lock()
	defer b.mu.Unlock()

	b.notFound = h
	b.handler = nil
}

// MethodNotAllowed sets the handler used when the path matches but the
// method does not.
func (r *Router) MethodNotAllowed(h http.Handler) {
	b := r.base()
	b.mu.Lock()
	defer b.mu.Unlock()

	b.methodNotAllowed = h
	b.handler = nil
}

// Stack returns a snapshot of the recorded nodes in registration order.
func (r *Router) Stack() []Node {
	b := r.base()
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.stack)
}

// Middlewares returns a snapshot of the router-wide middlewares.
func (r *Router) Middlewares() []Middleware {
	b := r.base()
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.middlewares)
}

// ServeHTTP dispatches the request. The dispatcher is rebuilt after any
// registration on this router; registrations on already mounted
// sub-routers after the first request are not picked up.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	b := r.base()

	b.mu.Lock()
	if b.handler == nil {
		mx := chi.NewRouter()
		if b.notFound != nil {
			mx.NotFound(b.notFound.ServeHTTP)
		}

		if b.methodNotAllowed != nil {
			mx.MethodNotAllowed(b.methodNotAllowed.ServeHTTP)
		}

		b.populate(mx, map[*Router]bool{b: true})
		b.handler = mx
	}
	h := b.handler
	b.mu.Unlock()

	h.ServeHTTP(w, req)
}

// populate registers the recorded tree on a chi router. Router-wide
// middlewares must be added before any route. Branches leading back to a
// router in active are not served.
func (r *Router) populate(mx chi.Router, active map[*Router]bool) {
	for _, mw := range r.middlewares {
		mx.Use(mw.Middleware)
	}

	for _, n := range r.stack {
		switch n := n.(type) {
		case *Leaf:
			h := n.handler()
			pattern := chiPattern(n.Path)

			for _, m := range n.Methods {
				if !slices.Contains(standardMethods, m) {
					chi.RegisterMethod(m)
				}

				mx.Method(m, pattern, h)
			}

		case *Branch:
			if n.Router == nil {
				continue
			}

			sub := n.Router.base()
			if active[sub] {
				continue
			}

			active[sub] = true
			sub.mu.Lock()
			prefix := strings.TrimRight(n.Path, "/")

			if prefix == "" {
				mx.Group(func(g chi.Router) {
					sub.populate(g, active)
				})
			} else {
				subMux := chi.NewRouter()
				sub.populate(subMux, active)
				mx.Mount(chiPattern(prefix), subMux)
			}
			sub.mu.Unlock()
			delete(active, sub)
		}
	}
}
