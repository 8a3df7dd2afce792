// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the Inkwell blog server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/authz"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/feed"
	"inkwell/internal/handlers"
	"inkwell/internal/lifecycle"
	"inkwell/internal/middleware"
	"inkwell/internal/router"
	"inkwell/internal/session"
	"inkwell/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Text logs in development, JSON everywhere else.
	var logHandler slog.Handler
	if cfg.IsDev() {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(logHandler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"edit_policy", cfg.EditPolicy,
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	db, err := database.Connect(startCtx, cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(startCtx, db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed the development administrator (no-op if it already exists).
	if cfg.IsDev() {
		if err := database.Seed(startCtx, db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	sessionStore := session.NewStore(valkeyClient, cfg.SessionTTL, cfg.SecureCookies())

	userStore := store.NewUserStore(db)
	postStore := store.NewPostStore(db)
	profileStore := store.NewProfileStore(db)

	var providers []auth.Provider
	if cfg.GoogleEnabled() {
		providers = append(providers, auth.NewGoogleProvider(
			cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL("google"),
		))
		slog.Info("oauth provider enabled", "provider", "google")
	} else {
		slog.Warn("google sign-in not configured, oauth disabled")
	}
	authService := auth.NewService(userStore, sessionStore, providers...)

	engine := lifecycle.New(authz.MustNew(), cfg.EditPolicy)

	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, time.Minute)
	defer authLimiter.Stop()

	r := router.New(router.Deps{
		Auth:          authService,
		Cookies:       sessionStore,
		AuthLimiter:   authLimiter,
		SecureCookies: cfg.SecureCookies(),
		TrustProxy:    cfg.TrustProxy,
		Checks: []router.Check{
			{Name: "postgres", Ping: db.PingContext},
			{Name: "valkey", Ping: func(ctx context.Context) error {
				return valkeyClient.Ping(ctx).Err()
			}},
		},
		Feed:       handlers.NewFeed(feed.New(postStore, profileStore)),
		Sessions:   handlers.NewAuth("/"),
		Workspace:  handlers.NewWorkspace(postStore, profileStore, engine),
		Moderation: handlers.NewModeration(postStore, profileStore, engine),
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
