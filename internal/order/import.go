package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/salestax/internal/fetcher"
	"github.com/sells-group/salestax/internal/model"
)

// ErrMissingColumns is returned when an import file lacks a required column.
var ErrMissingColumns = errors.New("order: CSV must contain latitude, longitude, and subtotal columns")

// ImportResult summarizes one import. Errors are per-line messages.
type ImportResult struct {
	Imported int      `json:"imported_count"`
	Failed   int      `json:"failed_count"`
	Errors   []string `json:"errors"`
}

// header aliases, matched as substrings of the normalized column name.
var (
	latNames       = []string{"latitude", "lat"}
	lonNames       = []string{"longitude", "lon", "lng"}
	subtotalNames  = []string{"subtotal", "amount", "price"}
	timestampNames = []string{"timestamp", "date", "datetime", "created_at"}
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
}

type columns struct {
	lat, lon, subtotal, timestamp int
}

func mapColumns(header []string) (columns, error) {
	c := columns{
		lat:       findColumn(header, latNames),
		lon:       findColumn(header, lonNames),
		subtotal:  findColumn(header, subtotalNames),
		timestamp: findColumn(header, timestampNames),
	}
	if c.lat < 0 || c.lon < 0 || c.subtotal < 0 {
		return c, ErrMissingColumns
	}
	return c, nil
}

// findColumn returns the first column whose normalized name contains any of names.
func findColumn(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
		for _, n := range names {
			if strings.Contains(h, n) {
				return i
			}
		}
	}
	return -1
}

func field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

// parseTimestamp falls back to now for blank or unrecognized values.
func parseTimestamp(s string, now time.Time) time.Time {
	if s == "" {
		return now
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return now
}

func parseLine(line fetcher.Line, cols columns, now time.Time) (CreateInput, error) {
	latStr := field(line.Fields, cols.lat)
	lonStr := field(line.Fields, cols.lon)
	subStr := field(line.Fields, cols.subtotal)
	if latStr == "" || lonStr == "" || subStr == "" {
		return CreateInput{}, errors.New("missing required fields")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return CreateInput{}, fmt.Errorf("invalid latitude %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return CreateInput{}, fmt.Errorf("invalid longitude %q", lonStr)
	}
	subtotal, err := decimal.NewFromString(subStr)
	if err != nil {
		return CreateInput{}, fmt.Errorf("invalid subtotal %q", subStr)
	}

	ts := parseTimestamp(field(line.Fields, cols.timestamp), now)
	in := CreateInput{Latitude: lat, Longitude: lon, Subtotal: subtotal, Timestamp: &ts}
	if err := in.Validate(); err != nil {
		return CreateInput{}, err
	}
	return in, nil
}

// Import reads an orders CSV, quotes every valid line and stores the batch.
// Bad lines are reported in the result and never abort the batch.
func (s *Service) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	headerCh := make(chan []string, 1)
	lines, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader:  true,
		HeaderCh:   headerCh,
		LazyQuotes: true,
		TrimSpace:  true,
	})

	now := s.now()
	res := &ImportResult{Errors: []string{}}
	var (
		cols    columns
		colsErr error
		mapped  bool
		batch   []CreateInput
	)
	for line := range lines {
		if !mapped {
			mapped = true
			select {
			case h := <-headerCh:
				cols, colsErr = mapColumns(h)
			default:
				colsErr = ErrMissingColumns
			}
		}
		if colsErr != nil {
			continue
		}

		in, err := parseLine(line, cols, now)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Line %d: %v", line.Num, err))
			continue
		}
		batch = append(batch, in)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "order: read import")
	}

	if !mapped {
		// Header only, or an empty file.
		select {
		case h := <-headerCh:
			_, colsErr = mapColumns(h)
		default:
			colsErr = ErrMissingColumns
		}
	}
	if colsErr != nil {
		return nil, colsErr
	}

	orders := make([]model.Order, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, in := range batch {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			orders[i] = s.build(gctx, in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "order: quote import")
	}

	if len(orders) > 0 {
		n, err := s.store.CreateOrders(ctx, orders)
		if err != nil {
			return nil, eris.Wrap(err, "order: store import")
		}
		res.Imported = n
	}
	res.Failed = len(res.Errors)
	zap.L().Info("order: import complete",
		zap.Int("imported", res.Imported),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}
