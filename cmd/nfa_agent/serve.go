package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/nfa-builder/internal/config"
	"github.com/jonathan/nfa-builder/internal/server"
	"github.com/jonathan/nfa-builder/internal/server/ratelimit"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes the generate, edit and download endpoints
used by the web client, plus history and signature lookups.

Setting auth.password_hash in the config enables bearer-token auth; JWT_SECRET
must then be set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: port from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := server.Config{
		Port:           a.cfg.Port,
		AllowedOrigins: a.cfg.AllowedOrigins,
		Auth:           a.cfg.Auth,
		RateLimit:      ratelimit.LoadConfig(os.LookupEnv),
	}
	if servePort > 0 {
		cfg.Port = servePort
	}
	if a.cfg.Auth.Enabled() {
		if cfg.JWT, err = config.LoadJWTConfig(os.LookupEnv); err != nil {
			return fmt.Errorf("auth is enabled: %w", err)
		}
		if cfg.Passwords, err = config.LoadPasswordConfig(os.LookupEnv); err != nil {
			return fmt.Errorf("auth is enabled: %w", err)
		}
	} else {
		a.logger.Warn("API auth is disabled; set auth.password_hash to enable it")
	}

	deps := server.Deps{
		Builder:           a.builder,
		Store:             a.store,
		Signatures:        a.signatures,
		SignatureDefaults: a.defaults,
		Logger:            a.logger,
	}
	if a.database != nil {
		deps.History = a.database
	}

	srv, err := server.New(cfg, deps)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	a.logger.Info("serving",
		zap.Int("port", cfg.Port),
		zap.Bool("auth", a.cfg.Auth.Enabled()),
		zap.Bool("history", a.database != nil),
		zap.Bool("llm", a.client != nil))
	return srv.Start(ctx)
}
