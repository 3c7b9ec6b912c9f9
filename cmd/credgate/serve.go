// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/auth/memory"
	authpg "github.com/credgate/credgate/internal/auth/postgres"
	"github.com/credgate/credgate/internal/config"
	"github.com/credgate/credgate/internal/gate"
	"github.com/credgate/credgate/internal/logging"
	"github.com/credgate/credgate/internal/observability"
	"github.com/credgate/credgate/internal/store"
	"github.com/credgate/credgate/internal/web"
	"github.com/credgate/credgate/internal/xdg"
)

// shutdownTimeout bounds graceful drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication server",
		Long: `Start the HTTP server handling registration, login, logout and the
role-gated dashboards, plus the metrics/health listener.`,
		RunE: runServe,
	}

	// Flag names mirror config keys so they overlay the YAML file directly.
	defaults := config.Default()
	cmd.Flags().String("server.addr", defaults.Server.Addr, "HTTP listen address")
	cmd.Flags().String("server.metrics_addr", defaults.Server.MetricsAddr, "metrics/health listen address")
	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")
	cmd.Flags().String("auth.session_store", defaults.Auth.SessionStore, "session store backend (memory or postgres)")
	cmd.Flags().Int("auth.session_timeout_seconds", defaults.Auth.SessionTimeoutSeconds, "session idle timeout in seconds")
	cmd.Flags().String("log.format", defaults.Log.Format, "log format (json or text)")
	cmd.Flags().String("log.level", defaults.Log.Level, "log level")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := configFile
	if cfgPath == "" {
		cfgPath = xdg.DefaultConfigFile()
	}
	cfg, err := config.Load(cfgPath, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault(logging.Options{
		Service: "credgate",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	})
	logger := slog.Default()

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	users := authpg.NewUserRepository(pool)

	var sessions auth.SessionStore
	if cfg.Auth.SessionStore == config.StoreMemory {
		sessions = memory.NewSessionStore()
	} else {
		sessions = authpg.NewSessionStore(pool)
	}

	service, err := auth.NewServiceWithLogger(users, sessions, auth.NewBcryptHasher(cfg.Auth.BcryptCost), logger)
	if err != nil {
		return err
	}

	g, err := gate.New(gateConfig(cfg.Gate))
	if err != nil {
		return err
	}

	var ready atomic.Bool
	obs := observability.NewServer(cfg.Server.MetricsAddr, ready.Load)
	obsErrCh, err := obs.Start()
	if err != nil {
		return err
	}
	metrics := obs.Metrics()

	handler, err := web.NewHandler(web.HandlerConfig{
		Auth:           service,
		Gate:           g,
		Logger:         logger,
		Metrics:        metrics,
		SessionTimeout: cfg.Auth.SessionTimeout(),
		SecureCookies:  cfg.Server.SecureCookies,
	})
	if err != nil {
		return err
	}

	webSrv := web.NewServer(cfg.Server.Addr, handler.Routes(), logger)
	webErrCh, err := webSrv.Start()
	if err != nil {
		stopServers(logger, nil, obs)
		return err
	}
	ready.Store(true)

	go auth.SweepExpired(ctx, sessions, cfg.Auth.SweepInterval(), logger, func(n int64) {
		metrics.SessionsSweptTotal.Add(float64(n))
	})

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err = <-webErrCh:
		err = oops.With("component", "web").Wrap(err)
	case err = <-obsErrCh:
		err = oops.With("component", "observability").Wrap(err)
	}

	ready.Store(false)
	stopServers(logger, webSrv, obs)
	return err
}

func gateConfig(cfg config.GateConfig) gate.Config {
	rules := make([]gate.RoleRule, 0, len(cfg.AdminPatterns)+len(cfg.UserPatterns))
	for _, p := range cfg.AdminPatterns {
		rules = append(rules, gate.RoleRule{Pattern: p, Role: auth.RoleAdmin})
	}
	for _, p := range cfg.UserPatterns {
		rules = append(rules, gate.RoleRule{Pattern: p, Role: auth.RoleUser})
	}
	return gate.Config{
		PublicPatterns: cfg.PublicPatterns,
		RoleRules:      rules,
		LoginPath:      cfg.LoginPath,
	}
}

func stopServers(logger *slog.Logger, webSrv *web.Server, obs *observability.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if webSrv != nil {
		if err := webSrv.Stop(shutdownCtx); err != nil {
			logger.Error("web server shutdown failed", "error", err)
		}
	}
	if obs != nil {
		if err := obs.Stop(shutdownCtx); err != nil {
			logger.Error("observability server shutdown failed", "error", err)
		}
	}
}
