package main

import (
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/salestax/internal/order"
)

var (
	quoteLat      float64
	quoteLon      float64
	quoteSubtotal string
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Quote tax for a coordinate (reverse geocoded)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("lookup"); err != nil {
			return err
		}
		ctx := cmd.Context()

		subtotal, err := decimal.NewFromString(quoteSubtotal)
		if err != nil {
			return eris.Wrapf(err, "quote: invalid subtotal %q", quoteSubtotal)
		}
		in := order.CreateInput{Latitude: quoteLat, Longitude: quoteLon, Subtotal: subtotal}
		if err := in.Validate(); err != nil {
			return err
		}
		if !cfg.Geocode.Enabled {
			zap.L().Warn("quote: geocoding disabled, every coordinate gets the no-local rate")
		}

		env, err := initQuoteEnv(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		q := env.Calculator.ForCoordinates(ctx, quoteLat, quoteLon, subtotal)
		zap.L().Info("quote",
			zap.String("tier", q.Tier),
			zap.String("tax", q.DisplayTax()),
			zap.String("total", q.DisplayTotal()),
		)
		return writeJSON(cmd.OutOrStdout(), q)
	},
}

func init() {
	quoteCmd.Flags().Float64Var(&quoteLat, "lat", 0, "latitude (required)")
	quoteCmd.Flags().Float64Var(&quoteLon, "lon", 0, "longitude (required)")
	quoteCmd.Flags().StringVar(&quoteSubtotal, "subtotal", "0", "pre-tax amount")
	_ = quoteCmd.MarkFlagRequired("lat")
	_ = quoteCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(quoteCmd)
}
