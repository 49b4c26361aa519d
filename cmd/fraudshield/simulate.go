package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
)

func simulateCmd() *cobra.Command {
	var (
		in     transactions.SimulationInput
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Score a hypothetical transaction",
		Long: `Score a hypothetical transaction with the what-if rules.

Examples:
  fraudshield simulate --amount 7500 --location "Lagos, Nigeria" --hour 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := transactions.Simulate(in)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Fprintf(out, "Prediction: %s\n", strings.ToUpper(string(result.Prediction)))
			fmt.Fprintf(out, "Risk score: %d%%\n", result.RiskScore)
			fmt.Fprintln(out, "Factors:")
			for _, f := range result.Factors {
				fmt.Fprintf(out, "  - %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&in.Amount, "amount", 0, "transaction amount in dollars")
	cmd.Flags().StringVar(&in.Location, "location", "", "transaction location")
	cmd.Flags().IntVar(&in.Hour, "hour", -1, "hour of day (0-23)")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")

	return cmd
}
