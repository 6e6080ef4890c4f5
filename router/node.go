package router

import (
	"net/http"
	"regexp"
)

// Middleware wraps an http.Handler. Implementations that also satisfy
// SchemaCarrier expose a request schema to documentation tooling.
type Middleware interface {
	Middleware(handler http.Handler) http.Handler
}

// MiddlewareFunc adapts an ordinary function to the Middleware interface.
type MiddlewareFunc func(http.Handler) http.Handler

// Middleware allows MiddlewareFunc to implement the Middleware interface.
func (mw MiddlewareFunc) Middleware(handler http.Handler) http.Handler {
	return mw(handler)
}

// SchemaCarrier is implemented by middlewares that are bound to a
// declarative request schema.
type SchemaCarrier interface {
	Schema() any
}

// Node is an entry of a router stack. It is either a *Leaf or a *Branch.
type Node interface {
	node()
}

// Leaf is a terminal route: a path, the methods it answers and the
// middleware chain in front of its handler.
type Leaf struct {
	Path        string
	Methods     []string
	Middlewares []Middleware
	Handler     http.Handler
}

// Branch is a sub-router mounted under a path prefix.
type Branch struct {
	Path   string
	Router *Router
}

func (*Leaf) node()   {}
func (*Branch) node() {}

// Schemas returns the schemas carried by the leaf middlewares in chain order.
func (l *Leaf) Schemas() []any {
	var out []any

	for _, mw := range l.Middlewares {
		if c, ok := mw.(SchemaCarrier); ok {
			if s := c.Schema(); s != nil {
				out = append(out, s)
			}
		}
	}

	return out
}

// handler returns the leaf handler wrapped by its middlewares. The first
// middleware is the outermost one.
func (l *Leaf) handler() http.Handler {
	h := l.Handler
	for i := len(l.Middlewares) - 1; i >= 0; i-- {
		h = l.Middlewares[i].Middleware(h)
	}

	return h
}

// paramPattern matches ":name" placeholders anywhere in a path, so
// "/files/:name.:ext" holds two parameters.
var paramPattern = regexp.MustCompile(`:([A-Za-z0-9_]+)`)

// chiPattern rewrites ":name" placeholders into chi "{name}" placeholders.
func chiPattern(path string) string {
	if path == "" {
		return "/"
	}

	return paramPattern.ReplaceAllString(path, "{$1}")
}
