package main

import (
	"github.com/spf13/cobra"

	"github.com/memecoin-scanner/internal/config"
	"github.com/memecoin-scanner/internal/logging"
)

func newScanCmd(cfg *config.Config) *cobra.Command {
	var skipAnalysis, asJSON bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one scan and print the qualifying tokens",
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

			report, err := a.runScan(cmd.Context(), svc, a.renderer(cmd.OutOrStdout(), asJSON))
			if err != nil {
				return err
			}

			logging.WithFields(map[string]interface{}{
				"scan_id": report.ScanID,
				"records": len(report.Records),
				"elapsed": report.FinishedAt.Sub(report.StartedAt).String(),
			}).Debug("Scan rendered")
			return nil
		},
	}

	addCriteriaFlags(cmd, cfg)
	addOutputFlags(cmd, &skipAnalysis, &asJSON)
	return cmd
}
