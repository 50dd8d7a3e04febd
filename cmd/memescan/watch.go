package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/memecoin-scanner/internal/api"
	"github.com/memecoin-scanner/internal/config"
	"github.com/memecoin-scanner/internal/logging"
	"github.com/memecoin-scanner/internal/service"
)

func newWatchCmd(cfg *config.Config) *cobra.Command {
	var skipAnalysis, asJSON bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Scan repeatedly until interrupted, optionally serving results over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if skipAnalysis {
				cfg.Analytics.Enabled = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			a := newApp(cfg)
			defer a.Close()

			svc, err := a.scanService(cmd.Context())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			latest := api.NewLatestReport()
			renderer := a.renderer(cmd.OutOrStdout(), asJSON)

			watch, err := service.NewWatchService(svc, a.criteria(), cfg.Scan.WatchInterval, func(report *service.ScanReport) {
				latest.Store(report)
				if err := renderer.Render(report.Records); err != nil {
					logging.WithError(err).Warn("Failed to render scan")
				}
			})
			if err != nil {
				return err
			}

			if cfg.Metrics.Addr != "" {
				server := api.NewServer(api.DefaultServerConfig(cfg.Metrics.Addr), latest, a.metrics.Handler())
				go func() {
					if err := server.Start(); err != nil {
						logging.WithError(err).Error("API server stopped")
					}
				}()
				defer func() {
					// ctx is already done here
					if err := server.Shutdown(context.Background()); err != nil {
						logging.WithError(err).Warn("API server shutdown failed")
					}
				}()
			}

			return watch.Run(ctx)
		},
	}

	addCriteriaFlags(cmd, cfg)
	addOutputFlags(cmd, &skipAnalysis, &asJSON)
	cmd.Flags().DurationVar(&cfg.Scan.WatchInterval, "interval", cfg.Scan.WatchInterval, "time between scans")
	cmd.Flags().StringVar(&cfg.Metrics.Addr, "addr", cfg.Metrics.Addr, "serve /health, /metrics and /api/scans on this address")
	return cmd
}
