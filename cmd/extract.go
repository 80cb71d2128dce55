package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/salestax/internal/extract"
	"github.com/sells-group/salestax/internal/fetcher"
	"github.com/sells-group/salestax/internal/schedule"
)

var (
	extractGridPath string
	extractSheet    string
	extractOut      string
	extractNoStore  bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Build the rate schedule from an extracted rate table (csv, tsv or xlsx)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("extract"); err != nil {
			return err
		}
		ctx := cmd.Context()

		policy, err := cfg.Schedule.Policy()
		if err != nil {
			return err
		}

		grid, err := fetcher.ReadGridFile(ctx, extractGridPath, fetcher.GridOptions{SheetName: extractSheet})
		if err != nil {
			return eris.Wrap(err, "extract: read grid")
		}

		res, err := extract.Run(grid, policy)
		if err != nil {
			return eris.Wrap(err, "extract: run")
		}

		if extractOut != "" {
			f, err := os.Create(extractOut)
			if err != nil {
				return eris.Wrap(err, "extract: create output")
			}
			if err := schedule.WriteCSV(f, res.Records); err != nil {
				f.Close() //nolint:errcheck
				return eris.Wrap(err, "extract: write output")
			}
			if err := f.Close(); err != nil {
				return eris.Wrap(err, "extract: close output")
			}
			zap.L().Info("extract: schedule written", zap.String("path", extractOut))
		}

		if extractNoStore {
			return nil
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.ReplaceSchedule(ctx, res.Records); err != nil {
			return eris.Wrap(err, "extract: store schedule")
		}

		zap.L().Info("extract: schedule stored",
			zap.String("grid", extractGridPath),
			zap.Int("records", len(res.Records)),
			zap.String("driver", cfg.Store.Driver),
		)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractGridPath, "grid", "", "path to the extracted rate table (required)")
	extractCmd.Flags().StringVar(&extractSheet, "sheet", "", "worksheet name for xlsx input (default first sheet)")
	extractCmd.Flags().StringVar(&extractOut, "out", "", "also write the schedule to this CSV file")
	extractCmd.Flags().BoolVar(&extractNoStore, "no-store", false, "skip writing the schedule to the store")
	_ = extractCmd.MarkFlagRequired("grid")
	rootCmd.AddCommand(extractCmd)
}
