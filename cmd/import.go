package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/salestax/internal/order"
)

var importCSVPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import orders from CSV, quoting each by coordinate",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}
		ctx := cmd.Context()

		f, err := os.Open(importCSVPath)
		if err != nil {
			return eris.Wrap(err, "import: open csv")
		}
		defer f.Close() //nolint:errcheck

		env, err := initQuoteEnv(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		svc := order.NewService(env.Store, env.Calculator, order.WithConcurrency(cfg.Orders.ImportConcurrency))
		res, err := svc.Import(ctx, f)
		if err != nil {
			return eris.Wrap(err, "import csv")
		}

		for _, msg := range res.Errors {
			zap.L().Warn("import: skipped line", zap.String("reason", msg))
		}
		zap.L().Info("import complete",
			zap.Int("imported", res.Imported),
			zap.Int("failed", res.Failed),
			zap.String("csv", importCSVPath),
		)
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
