package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/milad/smartmeter/internal/app"
	"github.com/milad/smartmeter/internal/config"
	"github.com/milad/smartmeter/internal/logging"
	grpcserver "github.com/milad/smartmeter/internal/transport/grpc"
)

func main() {
	var (
		cfgFile  string
		addr     string
		logLevel string
	)

	root := &cobra.Command{
		Use:          "grpcserver",
		Short:        "Serve the smart meter dashboard API over gRPC.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.GRPCAddr = addr
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			return run(cfg)
		},
	}
	root.Flags().StringVar(&cfgFile, "config", "", "optional YAML config file")
	root.Flags().StringVar(&addr, "addr", ":9090", "listen address (overrides GRPC_ADDR)")
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

	svc, closeSvc, err := app.NewService(cfg, log)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer closeSvc()

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %q: %w", cfg.GRPCAddr, err)
	}
	log.Info("gRPC listening", zap.String("addr", cfg.GRPCAddr), zap.String("mode", svc.Mode()))

	g := grpc.NewServer(grpc.UnaryInterceptor(grpcserver.UnaryLogger(log)))
	grpcserver.Register(g, grpcserver.New(svc, log))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(grpcserver.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(g, hs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info("shutting down gRPC")
		hs.Shutdown()
		ch := make(chan struct{})
		go func() {
			g.GracefulStop()
			close(ch)
		}()
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			g.Stop()
		}
	}()

	if err := g.Serve(lis); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
