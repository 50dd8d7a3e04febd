package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memecoin-scanner/internal/chain"
	"github.com/memecoin-scanner/internal/config"
	"github.com/memecoin-scanner/internal/types"
)

func newQueryCmd(cfg *config.Config) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "query <token-address>",
		Short: "Run the analytics query for one token address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]

			if err := cfg.ValidateAnalytics(); err != nil {
				return err
			}
			if !chain.ValidTokenAddress(cfg.Scan.TargetChain, address) {
				return fmt.Errorf("%q is not a valid %s token address", address, cfg.Scan.TargetChain)
			}

			a := newApp(cfg)
			defer a.Close()

			analysis, err := a.analysis()
			if err != nil {
				return err
			}

			result, err := analysis.AnalyzeAddress(cmd.Context(), address)
			if err != nil {
				return fmt.Errorf("analytics query failed: %w", err)
			}

			return printAnalysis(cmd, address, result, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "write the result as JSON")
	return cmd
}

func printAnalysis(cmd *cobra.Command, address string, result types.AnalysisResult, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			TokenAddress string `json:"token_address"`
			types.AnalysisResult
		}{address, result})
	}

	_, err := fmt.Fprintf(out, "Token Address: %s\nScore: %s\nSignal: %s\n",
		address, result.ScoreString(), result.Interpretation)
	return err
}
