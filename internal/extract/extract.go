package extract

import (
	"go.uber.org/zap"

	"github.com/sells-group/salestax/internal/model"
)

// Result is the output of one extraction run.
type Result struct {
	Records []model.ScheduleRecord
	Stats   Stats
}

// Run converts a grid into schedule records. A grid without a usable umbrella row is
// rejected; malformed individual cells only drop the rows that depend on them.
func Run(grid model.Grid, policy model.Policy) (*Result, error) {
	canonical, err := LocateCanonical(grid, policy)
	if err != nil {
		return nil, err
	}

	asm := NewAssembler(policy, canonical)
	for _, row := range grid {
		if err := asm.Feed(row); err != nil {
			return nil, err
		}
	}
	entries := asm.Finish()

	stats := asm.Stats()
	records := Build(policy, entries, &stats)

	zap.L().Info("extract: schedule built",
		zap.Int("rows", stats.Rows),
		zap.Int("entries", stats.Entries),
		zap.Int("sub_entries", stats.SubEntries),
		zap.Int("records", stats.Records),
		zap.Int("malformed_cells", stats.MalformedCells),
		zap.Int("starved_names", stats.StarvedNames),
		zap.Int("dropped_entries", stats.DroppedEntries),
	)
	if stats.StarvedNames > 0 {
		zap.L().Warn("extract: sub-jurisdiction names without a rate row were discarded",
			zap.Int("count", stats.StarvedNames),
		)
	}

	return &Result{Records: records, Stats: stats}, nil
}
