// Package middleware provides HTTP middlewares for router.Router.
//
// Every constructor returns a router.MiddlewareFunc so the result can be
// passed to Router.Use, Router.With or a route registration directly.
// Middlewares installed with Router.Use run before routing, so they also
// see requests that end in 404 or 405 responses.
package middleware
