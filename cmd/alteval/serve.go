package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/alteval/internal/config"
	"github.com/MrWong99/alteval/internal/mcpserver"
	"github.com/MrWong99/alteval/internal/observe"
	"github.com/MrWong99/alteval/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		listen string
		noMCP  bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the evaluation API over HTTP: POST /v1/metrics, POST /v1/tokenize,
health probes on /healthz and /readyz, Prometheus metrics on /metrics and
the MCP tools on /mcp.

When --config is given the file is watched and evaluation settings are
reloaded without a restart; SIGHUP forces a reload.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				root.cfg.Server.ListenAddr = listen
			}
			return runServe(root, !noMCP)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config, \":8080\")")
	cmd.Flags().BoolVar(&noMCP, "no-mcp", false, "do not mount the MCP endpoint")
	return cmd
}

func runServe(root *rootOptions, withMCP bool) error {
	cfg := root.cfg

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: telemetryVersion(cfg),
	})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	application, err := root.newApp()
	if err != nil {
		return err
	}

	if root.configPath != "" {
		w, err := config.NewWatcher(root.configPath, application.Apply)
		if err != nil {
			return err
		}
		application.AddCloser(func() error { w.Stop(); return nil })
		go reloadOnHangup(ctx, w)
	}

	var opts []server.Option
	if withMCP {
		mcp := mcpserver.New(application, mcpserver.WithVersion(version))
		opts = append(opts, server.WithMCPHandler(mcp.Handler()))
	}
	srv := server.New(application, opts...)

	slog.Info("alteval starting",
		"version", version,
		"listen_addr", cfg.Server.ListenAddr,
		"languages", cfg.Evaluation.Languages,
		"mcp", withMCP,
	)
	serveErr := srv.ListenAndServe(ctx, cfg.Server)
	if serveErr != nil && errors.Is(serveErr, context.Canceled) {
		serveErr = nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	return serveErr
}

// reloadOnHangup forces a config reload on every SIGHUP until ctx ends.
func reloadOnHangup(ctx context.Context, w *config.Watcher) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := w.Reload(); err != nil {
				slog.Warn("config reload failed, keeping previous configuration", "err", err)
			}
		}
	}
}

func telemetryVersion(cfg *config.Config) string {
	if cfg.Telemetry.ServiceVersion != "" {
		return cfg.Telemetry.ServiceVersion
	}
	return version
}

// newMCPCmd runs the MCP tool server on stdio.
func newMCPCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP tool server on stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing the
compute_metrics and tokenize tools. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := root.newApp()
			if err != nil {
				return err
			}
			slog.Debug("mcp server starting", "version", version)
			err = mcpserver.New(application, mcpserver.WithVersion(version)).RunStdio(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
