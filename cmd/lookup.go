package main

import (
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	lookupJurisdiction string
	lookupSub          string
	lookupSubtotal     string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Quote tax for a jurisdiction and optional sub-jurisdiction",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("lookup"); err != nil {
			return err
		}
		ctx := cmd.Context()

		subtotal, err := decimal.NewFromString(lookupSubtotal)
		if err != nil {
			return eris.Wrapf(err, "lookup: invalid subtotal %q", lookupSubtotal)
		}
		if subtotal.IsNegative() {
			return eris.Errorf("lookup: subtotal %s is negative", subtotal)
		}

		env, err := initQuoteEnv(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		q := env.Calculator.ForLocation(lookupJurisdiction, lookupSub, subtotal)
		return writeJSON(cmd.OutOrStdout(), q)
	},
}

func init() {
	lookupCmd.Flags().StringVar(&lookupJurisdiction, "jurisdiction", "", "county-level jurisdiction name")
	lookupCmd.Flags().StringVar(&lookupSub, "sub", "", "sub-jurisdiction (city) name")
	lookupCmd.Flags().StringVar(&lookupSubtotal, "subtotal", "0", "pre-tax amount")
	rootCmd.AddCommand(lookupCmd)
}
