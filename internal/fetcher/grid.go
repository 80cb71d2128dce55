package fetcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/salestax/internal/model"
)

// GridOptions configures grid input. The table's column-title row is always skipped.
type GridOptions struct {
	Delimiter rune   // CSV only
	SheetName string // XLSX only
}

// ReadGridCSV reads an extracted rate table from CSV. Cells keep embedded line breaks.
func ReadGridCSV(ctx context.Context, r io.Reader, opts GridOptions) (model.Grid, error) {
	rowCh, errCh := StreamCSV(ctx, r, CSVOptions{
		Delimiter:  opts.Delimiter,
		HasHeader:  true,
		LazyQuotes: true,
	})

	var rows [][]string
	for line := range rowCh {
		rows = append(rows, line.Fields)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "fetcher: read grid csv")
	}
	return model.NewGrid(rows), nil
}

// ReadGridXLSX reads an extracted rate table from the first (or named) sheet of a workbook.
func ReadGridXLSX(path string, opts GridOptions) (model.Grid, error) {
	rows, err := ReadXLSX(path, XLSXOptions{SheetName: opts.SheetName, SkipRows: 1})
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read grid xlsx")
	}
	return model.NewGrid(rows), nil
}

// ReadGridFile picks the reader by file extension.
func ReadGridFile(ctx context.Context, path string, opts GridOptions) (model.Grid, error) {
	var (
		grid model.Grid
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		grid, err = ReadGridXLSX(path, opts)
	case ".tsv":
		if opts.Delimiter == 0 {
			opts.Delimiter = '\t'
		}
		grid, err = readGridCSVFile(ctx, path, opts)
	case ".csv":
		grid, err = readGridCSVFile(ctx, path, opts)
	default:
		return nil, eris.Errorf("fetcher: unsupported grid file %q (want .csv, .tsv or .xlsx)", path)
	}
	if err != nil {
		return nil, err
	}
	zap.L().Info("fetcher: grid loaded", zap.String("path", path), zap.Int("rows", len(grid)))
	return grid, nil
}

func readGridCSVFile(ctx context.Context, path string, opts GridOptions) (model.Grid, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadGridCSV(ctx, f, opts)
}
