// Command memescan finds newly listed, fast-rising memecoins on one chain and
// scores each of them with an on-chain analytics query.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/memecoin-scanner/internal/config"
	scanerrors "github.com/memecoin-scanner/internal/errors"
	"github.com/memecoin-scanner/internal/logging"
)

const (
	exitFailure     = 1
	exitConfigError = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitConfigError)
	}

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, scanerrors.ErrConfig) {
		return exitConfigError
	}
	return exitFailure
}

// newRootCmd builds the command tree. Flag defaults come from cfg, and parsed
// flags write back into it, so commands read the effective values from cfg.
func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "memescan",
		Short:         "Scan CoinMarketCap for trending memecoins and score them on Dune",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.InitGlobalLogger(
				logging.ParseLogLevel(cfg.Logging.Level),
				logging.ParseLogFormat(cfg.Logging.Format),
			)
		},
	}

	root.PersistentFlags().StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&cfg.Logging.Format, "log-format", cfg.Logging.Format, "log format (text, json)")
	root.PersistentFlags().StringVar(&cfg.Scan.TargetChain, "chain", cfg.Scan.TargetChain, "target chain platform name")

	root.AddCommand(newScanCmd(cfg))
	root.AddCommand(newWatchCmd(cfg))
	root.AddCommand(newQueryCmd(cfg))

	return root
}

// addCriteriaFlags binds the selection criteria and pacing flags shared by scan and watch
func addCriteriaFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	f.Float64Var(&cfg.Scan.VolumeThreshold, "volume-threshold", cfg.Scan.VolumeThreshold, "minimum 24h volume in USD (exclusive)")
	f.Float64Var(&cfg.Scan.MinPriceIncrease, "min-change", cfg.Scan.MinPriceIncrease, "minimum 24h price change in percent")
	f.Float64Var(&cfg.Scan.MaxPriceIncrease, "max-change", cfg.Scan.MaxPriceIncrease, "maximum 24h price change in percent")
	f.DurationVar(&cfg.Scan.MaxListingAge, "max-age", cfg.Scan.MaxListingAge, "maximum time since listing")
	f.DurationVar(&cfg.Scan.RateLimitInterval, "rate-interval", cfg.Scan.RateLimitInterval, "minimum spacing between provider calls")
}

// addOutputFlags binds the analysis toggle and output format flags
func addOutputFlags(cmd *cobra.Command, skipAnalysis, asJSON *bool) {
	cmd.Flags().BoolVar(skipAnalysis, "skip-analysis", false, "list candidates without running the analytics query")
	cmd.Flags().BoolVar(asJSON, "json", false, "write records as JSON instead of a table")
}
