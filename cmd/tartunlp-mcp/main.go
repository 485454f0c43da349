// Command tartunlp-mcp serves the TartuNLP translation tools over MCP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tartunlp-mcp/internal/config"
	"tartunlp-mcp/internal/logging"
	"tartunlp-mcp/internal/metrics"
	"tartunlp-mcp/internal/server"
	"tartunlp-mcp/internal/tartunlp"
	"tartunlp-mcp/internal/tools"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var configPath string

	root := &cobra.Command{
		Use:          "tartunlp-mcp",
		Short:        "TartuNLP translation tools for MCP clients",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStdio(cmd.Context(), v, configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().Int("timeout-ms", config.DefaultTimeoutMS, "Backend request timeout in milliseconds (1000-30000)")
	root.PersistentFlags().String("base-url", "", "TartuNLP translation API URL")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	_ = v.BindPFlag("timeout_ms", root.PersistentFlags().Lookup("timeout-ms"))
	_ = v.BindPFlag("base_url", root.PersistentFlags().Lookup("base-url"))
	_ = v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(&cobra.Command{
		Use:   "stdio",
		Short: "Serve MCP over standard input/output (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStdio(cmd.Context(), v, configPath)
		},
	})

	httpCmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the tools over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHTTP(cmd.Context(), v, configPath)
		},
	}
	httpCmd.Flags().String("port", "", "Listen port")
	_ = v.BindPFlag("http.port", httpCmd.Flags().Lookup("port"))
	root.AddCommand(httpCmd)

	return root
}

type app struct {
	cfg        config.Config
	log        *slog.Logger
	dispatcher *tools.Dispatcher
	registry   *prometheus.Registry
}

func setup(v *viper.Viper, configPath string) (*app, error) {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	client := tartunlp.New(cfg.BaseURL, &http.Client{Timeout: cfg.Timeout()}, logging.NewComponentLogger(logger, "tartunlp"))
	d, err := tartunlp.NewDispatcher(client,
		tools.WithLogger(logging.NewComponentLogger(logger, "dispatcher")),
		tools.WithObserver(metrics.NewRecorder(reg)),
	)
	if err != nil {
		return nil, err
	}
	logger.Info("TartuNLP MCP server initialized", slog.Int("timeout_ms", cfg.TimeoutMS), slog.String("base_url", cfg.BaseURL))
	return &app{cfg: cfg, log: logger, dispatcher: d, registry: reg}, nil
}

func runStdio(ctx context.Context, v *viper.Viper, configPath string) error {
	a, err := setup(v, configPath)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := server.NewStdioServer(a.dispatcher, version, logging.NewComponentLogger(a.log, "stdio"))
	if err != nil {
		return err
	}
	err = s.Serve(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

func runHTTP(ctx context.Context, v *viper.Viper, configPath string) error {
	a, err := setup(v, configPath)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + a.cfg.HTTP.Port,
		Handler:           server.New(a.dispatcher, logging.NewComponentLogger(a.log, "http"), a.registry).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting MCP HTTP server", slog.String("addr", srv.Addr))
		if a.cfg.HTTP.TLSCertFile != "" && a.cfg.HTTP.TLSKeyFile != "" {
			errCh <- srv.ListenAndServeTLS(a.cfg.HTTP.TLSCertFile, a.cfg.HTTP.TLSKeyFile)
			return
		}
		a.log.Warn("TLS cert/key not set; serving plain HTTP. Run behind a TLS-terminating proxy.")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
