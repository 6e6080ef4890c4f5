package openapi

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/vitalvas/fastapify/router"
)

// RouteRecord is a route recovered from the router tree. Path keeps the
// ":name" parameter form.
type RouteRecord struct {
	GroupKey string
	Path     string
	Methods  []string
	Schemas  []any
}

// RouteGroup holds the records collected at one nesting depth.
type RouteGroup struct {
	Key    string
	Routes []RouteRecord
}

// Catalogue is the ordered result of walking a router tree. Groups appear in
// the order their key was first produced.
type Catalogue struct {
	Groups []RouteGroup
}

// Len returns the total number of records.
func (c *Catalogue) Len() int {
	n := 0
	for _, g := range c.Groups {
		n += len(g.Routes)
	}

	return n
}

// Group returns the records filed under key.
func (c *Catalogue) Group(key string) []RouteRecord {
	for _, g := range c.Groups {
		if g.Key == key {
			return g.Routes
		}
	}

	return nil
}

func (c *Catalogue) add(rec RouteRecord) {
	for i := range c.Groups {
		if c.Groups[i].Key == rec.GroupKey {
			c.Groups[i].Routes = append(c.Groups[i].Routes, rec)
			return
		}
	}

	c.Groups = append(c.Groups, RouteGroup{Key: rec.GroupKey, Routes: []RouteRecord{rec}})
}

// GroupKey returns the catalogue key for records found at depth.
func GroupKey(depth int) string {
	return fmt.Sprintf("router -- %d", depth)
}

// WalkOption configures Walk.
type WalkOption func(*walker)

// WithExclude drops records whose path matches any of the doublestar
// patterns, e.g. "/internal/**".
func WithExclude(patterns ...string) WalkOption {
	return func(w *walker) {
		w.exclude = append(w.exclude, patterns...)
	}
}

// WithLogger sets the logger receiving walk diagnostics. The default is
// slog.Default().
func WithLogger(logger *slog.Logger) WalkOption {
	return func(w *walker) {
		w.logger = logger
	}
}

type walker struct {
	exclude []string
	logger  *slog.Logger
	cat     Catalogue

	// active holds the routers on the current descent.
	active map[*router.Router]bool
}

// Walk traverses the router tree depth first and returns its route
// catalogue. Leaves directly on root are filed under depth 0, each mounted
// branch adds one level. A nil root yields an empty catalogue. A branch
// mounting a router that is already on the current descent is skipped.
func Walk(root *router.Router, opts ...WalkOption) Catalogue {
	w := &walker{active: make(map[*router.Router]bool)}
	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = slog.Default()
	}

	if root == nil {
		return w.cat
	}

	w.active[root] = true
	w.dig("", root.Stack(), 0)

	return w.cat
}

func (w *walker) dig(prefix string, stack []router.Node, depth int) {
	for _, n := range stack {
		switch n := n.(type) {
		case *router.Leaf:
			seg := n.Path
			if seg == "/" {
				seg = ""
			}

			path := prefix + seg
			if w.excluded(path) {
				continue
			}

			methods := make([]string, 0, len(n.Methods))
			for _, m := range n.Methods {
				methods = append(methods, strings.ToUpper(m))
			}

			w.cat.add(RouteRecord{
				GroupKey: GroupKey(depth),
				Path:     path,
				Methods:  methods,
				Schemas:  n.Schemas(),
			})

		case *router.Branch:
			if n.Router == nil {
				continue
			}

			mount := prefix + strings.TrimRight(n.Path, "/")
			if w.active[n.Router] {
				w.logger.Warn("skipping cyclic router mount", slog.String("path", mount))
				continue
			}

			w.active[n.Router] = true
			w.dig(mount, n.Router.Stack(), depth+1)
			delete(w.active, n.Router)
		}
	}
}

func (w *walker) excluded(path string) bool {
	for _, pattern := range w.exclude {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}

	return false
}
