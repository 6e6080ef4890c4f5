// Package fastapify wires an instrumented router to automatic OpenAPI
// documentation.
//
// Routes are registered on the App like on any router.Router. When the
// server starts, the route tree is walked once, every validation schema
// attached to a route is turned into parameters and request bodies, and the
// resulting document is served next to an interactive UI:
//
//	app := fastapify.New(fastapify.Config{ServerURL: "localhost", DocsRoute: "/docs"})
//	app.With(validate.Request(schema)).Post("/users", createUser)
//	err := app.Listen(ctx, 3000)
//
// Documentation failures never stop the server: a route whose schema cannot
// be read is documented without parameters, and a failing compilation
// yields an empty document.
package fastapify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/vitalvas/fastapify/openapi"
	"github.com/vitalvas/fastapify/router"
)

// Config configures an App.
type Config struct {
	// ServerURL is the public server address. "localhost" or empty means
	// http://localhost:<port>.
	ServerURL string

	// DocsRoute is where the docs UI is served (default "/docs").
	DocsRoute string

	// Info is shallow-merged over the default document metadata.
	Info openapi.Info

	// Exclude holds glob patterns of routes left out of the document.
	Exclude []string

	UI        openapi.DocsUI
	DocsTitle string

	// ShutdownTimeout bounds graceful shutdown (default 10s).
	ShutdownTimeout time.Duration

	Logger *slog.Logger

	// Compiler overrides the document compiler.
	Compiler *openapi.Compiler
}

// App is a router that documents itself.
type App struct {
	*router.Router

	cfg Config

	once    sync.Once
	doc     *openapi.Document
	docsErr error
}

// New returns an App with an empty router.
func New(cfg Config) *App {
	if cfg.DocsRoute == "" {
		cfg.DocsRoute = "/docs"
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Compiler == nil {
		cfg.Compiler = openapi.NewCompiler(cfg.Logger)
	}

	return &App{Router: router.New(), cfg: cfg}
}

// Document compiles the current route tree. It never fails: a panic during
// compilation is logged and an empty document is returned.
func (a *App) Document(port int) (doc *openapi.Document) {
	defer func() {
		if rec := recover(); rec != nil {
			a.cfg.Logger.Error("openapi compilation failed", slog.Any("panic", rec))
			doc = a.cfg.Compiler.Compile(openapi.Catalogue{}, a.cfg.Info, a.cfg.ServerURL, port)
		}
	}()

	cat := openapi.Walk(a.Router,
		openapi.WithExclude(a.cfg.Exclude...),
		openapi.WithLogger(a.cfg.Logger),
	)

	return a.cfg.Compiler.Compile(cat, a.cfg.Info, a.cfg.ServerURL, port)
}

// Prepare compiles the document and registers the docs endpoints. Only the
// first call has an effect; the docs endpoints are therefore never part of
// the document.
func (a *App) Prepare(port int) (*openapi.Document, error) {
	a.once.Do(func() {
		a.doc = a.Document(port)

		a.docsErr = openapi.Handle(a.Router, a.cfg.DocsRoute, a.doc, &openapi.HandleConfig{
			UI:    a.cfg.UI,
			Title: a.cfg.DocsTitle,
		})
		if a.docsErr != nil {
			a.cfg.Logger.Error("failed to register docs endpoints", slog.Any("error", a.docsErr))
			return
		}

		a.cfg.Logger.Info("api documentation ready",
			slog.String("route", a.cfg.DocsRoute),
			slog.Int("paths", len(a.doc.Paths)),
		)
	})

	return a.doc, a.docsErr
}

// Listen serves on port until ctx is cancelled, then shuts down gracefully.
func (a *App) Listen(ctx context.Context, port int) error {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", port, err)
	}

	return a.Serve(ctx, ln)
}

// Serve is Listen on an existing listener. The document uses the listener
// port.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	port := 0
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}

	// Docs failures are logged by Prepare and must not stop the server.
	_, _ = a.Prepare(port)

	srv := &http.Server{
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	errCh := make(chan error, 1)

	go func() {
		a.cfg.Logger.Info("starting server", slog.Int("port", port))

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	a.cfg.Logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.cfg.Logger.Info("server shutdown completed")

	return nil
}
