package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/milad/smartmeter/internal/app"
	"github.com/milad/smartmeter/internal/config"
	"github.com/milad/smartmeter/internal/logging"
	httpserver "github.com/milad/smartmeter/internal/transport/http"
)

func main() {
	var (
		cfgFile  string
		addr     string
		logLevel string
	)

	root := &cobra.Command{
		Use:          "httpserver",
		Short:        "Serve the smart meter dashboard API over HTTP.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.HTTPAddr = addr
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			return run(cfg)
		},
	}
	root.Flags().StringVar(&cfgFile, "config", "", "optional YAML config file")
	root.Flags().StringVar(&addr, "addr", ":8080", "listen address (overrides HTTP_ADDR)")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level (overrides LOG_LEVEL)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, closeSvc, err := app.NewService(cfg, log)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer closeSvc()

	h := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpserver.New(svc, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %q: %w", cfg.HTTPAddr, err)
	}
	log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("mode", svc.Mode()))

	go func() {
		<-ctx.Done()
		log.Info("shutting down HTTP")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.Shutdown(shutdownCtx)
	}()

	if err := h.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
