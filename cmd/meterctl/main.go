package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/milad/smartmeter/internal/aggregate"
	"github.com/milad/smartmeter/internal/app"
	"github.com/milad/smartmeter/internal/config"
	"github.com/milad/smartmeter/internal/domain"
	"github.com/milad/smartmeter/internal/logging"
	"github.com/milad/smartmeter/internal/service"
	grpcserver "github.com/milad/smartmeter/internal/transport/grpc"
)

type globals struct {
	cfgFile  string
	format   string
	grpcAddr string
	wait     time.Duration

	// newLogger overrides the stderr logger, for tests.
	newLogger func() (*zap.Logger, error)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:          "meterctl",
		Short:        "Inspect smart meter series, analytics overlays and saving suggestions.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.cfgFile, "config", "", "optional YAML config file")
	root.PersistentFlags().StringVarP(&g.format, "format", "o", "table", "output format: table, json or yaml")
	root.PersistentFlags().StringVar(&g.grpcAddr, "grpc", "", "query a running grpcserver at host:port instead of local data")
	root.PersistentFlags().DurationVar(&g.wait, "grpc-wait", 5*time.Second, "how long to wait for the gRPC server to become healthy")

	root.AddCommand(newSeriesCommand(g))
	root.AddCommand(newBillingCommand(g))
	root.AddCommand(newSuggestionsCommand(g))
	root.AddCommand(newOverlayCommand(g))
	return root
}

func newSeriesCommand(g *globals) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Print the power usage series for a day, month or year",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := domain.ParsePeriod(period)
			var usage domain.PowerUsage
			if g.grpcAddr != "" {
				client, closeFn, err := g.dial(cmd.Context())
				if err != nil {
					return err
				}
				defer closeFn()
				if usage, err = client.PowerUsage(cmd.Context(), p); err != nil {
					return err
				}
			} else {
				svc, closeFn, err := g.local()
				if err != nil {
					return err
				}
				defer closeFn()
				usage = svc.PowerUsage(p)
			}
			return render(cmd.OutOrStdout(), g.format, usage, func() [][]string { return seriesRows(usage) })
		},
	}
	cmd.Flags().StringVarP(&period, "period", "p", "day", "day, month or year")
	return cmd
}

func newBillingCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "billing",
		Short: "Print the current billing record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var b domain.BillingRecord
			if g.grpcAddr != "" {
				client, closeFn, err := g.dial(cmd.Context())
				if err != nil {
					return err
				}
				defer closeFn()
				if b, err = client.Billing(cmd.Context()); err != nil {
					return err
				}
			} else {
				svc, closeFn, err := g.local()
				if err != nil {
					return err
				}
				defer closeFn()
				if b, err = svc.Billing(cmd.Context()); err != nil {
					return err
				}
			}
			return render(cmd.OutOrStdout(), g.format, b, func() [][]string { return billingRows(b) })
		},
	}
}

func newSuggestionsCommand(g *globals) *cobra.Command {
	var (
		category string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "Print energy saving suggestions for today's usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := g.local()
			if err != nil {
				return err
			}
			defer closeFn()
			recs, err := svc.Suggestions(category, limit)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), g.format, recs, func() [][]string { return suggestionRows(recs) })
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "all", "category to keep, or all")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum suggestions (0 for all)")
	return cmd
}

func newOverlayCommand(g *globals) *cobra.Command {
	var (
		granularity string
		tick        int
		progress    float64
		frames      int
	)
	cmd := &cobra.Command{
		Use:   "overlay",
		Short: "Print analytics with the live bump and cumulative overlays",
		RunE: func(cmd *cobra.Command, _ []string) error {
			gr, err := domain.ParseGranularity(granularity)
			if err != nil {
				return err
			}
			svc, closeFn, err := g.local()
			if err != nil {
				return err
			}
			defer closeFn()
			if cmd.Flags().Changed("frames") {
				series, err := svc.Analytics(cmd.Context(), gr)
				if err != nil {
					return err
				}
				var a aggregate.Animation
				tick, a = aggregate.Frame(len(series), frames)
				progress = a.Progress
			}
			pts, err := svc.LiveOverlay(cmd.Context(), gr, tick, progress)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), g.format, pts, func() [][]string { return overlayRows(pts) })
		},
	}
	cmd.Flags().StringVarP(&granularity, "granularity", "g", "daily", "daily, monthly or yearly")
	cmd.Flags().IntVar(&tick, "tick", 0, "live bump tick")
	cmd.Flags().Float64Var(&progress, "progress", 1e9, "cumulative reveal cursor (default reveals everything)")
	cmd.Flags().IntVar(&frames, "frames", 0, "derive tick and progress from this many animation frames")
	return cmd
}

// logger logs to stderr at warn so command output stays clean.
func (g *globals) logger() (*zap.Logger, error) {
	if g.newLogger != nil {
		return g.newLogger()
	}
	return logging.New("warn")
}

// local builds the dashboard from config with logging on stderr at warn.
func (g *globals) local() (*service.DashboardService, func(), error) {
	cfg, err := config.Load(g.cfgFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := g.logger()
	if err != nil {
		return nil, nil, err
	}
	return app.NewService(cfg, log)
}

func (g *globals) dial(ctx context.Context) (*grpcserver.Client, func(), error) {
	conn, err := grpc.NewClient(g.grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dial gRPC %q: %w", g.grpcAddr, err)
	}
	log, err := g.logger()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	grpcserver.WaitForReady(ctx, conn, g.wait, log)
	return grpcserver.NewClient(conn), func() { _ = conn.Close() }, nil
}
