// ABOUTME: Entry point for the coven-sso ticket and authentication server
// ABOUTME: Wires config, registry, handler chain, grant extractors, and HTTP API

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/2389/coven-sso/internal/authn"
	"github.com/2389/coven-sso/internal/cas"
	"github.com/2389/coven-sso/internal/config"
	"github.com/2389/coven-sso/internal/httpapi"
	"github.com/2389/coven-sso/internal/oauth"
	"github.com/2389/coven-sso/internal/registry"
	"github.com/2389/coven-sso/internal/services"
	"github.com/2389/coven-sso/internal/tokens"
)

var version = "dev"

func main() {
	configPath := "sso.yaml"
	if envPath := os.Getenv("COVEN_SSO_CONFIG"); envPath != "" {
		configPath = envPath
	}
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	if err := run(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	setupLogging(cfg.Logging)
	slog.Info("starting coven-sso", "version", version)

	// Ticket registry: SQLite when a database path is configured,
	// in-memory otherwise.
	var reg registry.TicketRegistry
	if cfg.Database.Path != "" {
		reg, err = registry.NewSQLiteRegistry(cfg.Database.Path)
		if err != nil {
			return err
		}
	} else {
		slog.Warn("no database path configured, tickets will not survive restarts")
		reg = registry.NewMemoryRegistry()
	}
	defer reg.Close()

	serviceRegistry, err := services.LoadRegistry(cfg.Services.Path)
	if err != nil {
		return err
	}

	lifetimes := lifetimesFromConfig(cfg.Tickets)
	central := cas.New(reg, serviceRegistry, services.NewAccessEnforcer(), lifetimes)

	minter, err := tokens.NewMinter([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return err
	}

	coordinator := authn.NewCoordinator(
		[]authn.Handler{
			authn.NewPasswordHandler(cfg.Auth.Users),
			authn.NewTokenHandler(minter),
		},
		[]authn.PrincipalResolver{
			authn.NewEchoingResolver(),
			authn.NewAttributeResolver(authn.MapAttributeRepository(cfg.Auth.Attributes)),
		},
	)

	builder := oauth.NewAuthenticationBuilder()
	chain := oauth.NewChain(
		oauth.NewPasswordGrantExtractor(central, builder),
		oauth.NewAuthorizationCodeExtractor(central, reg),
		oauth.NewClientCredentialsExtractor(central),
		oauth.NewRefreshTokenExtractor(central, reg),
	)

	sweepInterval := cfg.Tickets.SweepInterval
	if sweepInterval == 0 {
		sweepInterval = time.Minute
	}
	sweeper := registry.NewSweeper(reg, sweepInterval)
	defer sweeper.Close()

	api := httpapi.NewServer(central, coordinator, chain, minter, lifetimes.AccessToken)
	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: api,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// setupLogging configures the default slog logger from config.
func setupLogging(cfg config.LoggingConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// lifetimesFromConfig applies defaults for any unset lifetime.
func lifetimesFromConfig(cfg config.TicketsConfig) cas.TicketLifetimes {
	lifetimes := cas.DefaultLifetimes()
	if cfg.TGTMaxLifetime != 0 {
		lifetimes.TGTMaxLifetime = cfg.TGTMaxLifetime
	}
	if cfg.TGTIdleTimeout != 0 {
		lifetimes.TGTIdleTimeout = cfg.TGTIdleTimeout
	}
	if cfg.ServiceTicket != 0 {
		lifetimes.ServiceTicket = cfg.ServiceTicket
	}
	if cfg.OAuthCode != 0 {
		lifetimes.OAuthCode = cfg.OAuthCode
	}
	if cfg.AccessToken != 0 {
		lifetimes.AccessToken = cfg.AccessToken
	}
	if cfg.RefreshToken != 0 {
		lifetimes.RefreshToken = cfg.RefreshToken
	}
	return lifetimes
}
