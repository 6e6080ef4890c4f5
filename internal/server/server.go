// Package server assembles the application route tree.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vitalvas/fastapify/fastapify"
	"github.com/vitalvas/fastapify/internal/api"
	"github.com/vitalvas/fastapify/internal/config"
	"github.com/vitalvas/fastapify/internal/user"
	"github.com/vitalvas/fastapify/middleware"
	"github.com/vitalvas/fastapify/openapi"
	"github.com/vitalvas/fastapify/router"
)

// New builds the application:
//
//	/health
//	/api/user/auth/get-otp
//	/api/user/auth/verify-otp
//	/api/user/auth/logout
//	/api/user/profile/avatar
//
// Empty signing secrets are replaced by random ones, which invalidates
// issued tokens on every restart.
func New(cfg *config.Config, logger *slog.Logger) (*fastapify.App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tokens, err := newTokenIssuer(cfg.Auth, logger)
	if err != nil {
		return nil, err
	}

	app := fastapify.New(fastapify.Config{
		ServerURL: cfg.Server.URL,
		DocsRoute: cfg.Docs.Route,
		Info: openapi.Info{
			Title:       cfg.Docs.Title,
			Version:     cfg.Docs.Version,
			Description: cfg.Docs.Description,
		},
		Exclude:         cfg.Docs.Exclude,
		UI:              openapi.ParseDocsUI(cfg.Docs.UI),
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logger,
	})

	cors, err := middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedDomains:   cfg.CORS.AllowedDomains,
		AllowCredentials: cfg.CORS.AllowCredentials,
		ExposeHeaders:    []string{middleware.RequestIDHeader},
	})
	if err != nil {
		return nil, fmt.Errorf("cors: %w", err)
	}

	gzip, err := middleware.Gzip(0)
	if err != nil {
		return nil, err
	}

	app.Use(
		middleware.RequestID(middleware.RequestIDConfig{}),
		middleware.RequestLogger(logger),
		middleware.Recovery(middleware.RecoveryConfig{
			ErrorHandler: func(w http.ResponseWriter, r *http.Request, _ any) {
				api.WriteError(w, r, api.NewError(http.StatusInternalServerError, api.CodeInternal, "Internal Server Error"))
			},
		}),
		cors,
		gzip,
	)

	app.NotFound(http.HandlerFunc(api.NotFoundHandler))
	app.MethodNotAllowed(http.HandlerFunc(api.MethodNotAllowedHandler))

	app.Get("/health", health)

	users := user.NewHandler(
		user.NewMemoryOTPStore(cfg.Auth.OTPTTL),
		&user.LogMailer{From: cfg.Mail.From, Logger: logger},
		tokens,
	)

	apiRouter := router.New()
	apiRouter.Mount("/user", users.Router())
	app.Mount("/api", apiRouter)

	return app, nil
}

func newTokenIssuer(cfg config.AuthConfig, logger *slog.Logger) (*user.TokenIssuer, error) {
	access, refresh := cfg.AccessSecret, cfg.RefreshSecret

	for _, secret := range []*string{&access, &refresh} {
		if *secret != "" {
			continue
		}

		generated, err := user.RandomSecret()
		if err != nil {
			return nil, err
		}

		*secret = generated
	}

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		logger.Warn("auth secrets not configured, using random secrets")
	}

	return user.NewTokenIssuer(user.TokenConfig{
		AccessSecret:  access,
		RefreshSecret: refresh,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	})
}

func health(w http.ResponseWriter, _ *http.Request) {
	api.OK(w, http.StatusOK, map[string]string{"status": "ok"}, "")
}
