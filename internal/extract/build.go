package extract

import (
	"strings"

	"github.com/sells-group/salestax/internal/model"
	"github.com/sells-group/salestax/internal/rate"
)

// PadCode left-pads a non-empty reporting code with zeros to four characters.
func PadCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || len(code) >= 4 {
		return code
	}
	return strings.Repeat("0", 4-len(code)) + code
}

// Build flattens entries into schedule records. Entries without a composite rate are dropped,
// as are sub-entries without one. The first record for each key wins.
func Build(policy model.Policy, entries []*Entry, stats *Stats) []model.ScheduleRecord {
	if stats == nil {
		stats = &Stats{}
	}

	seen := make(map[model.RecordKey]struct{})
	var out []model.ScheduleRecord
	add := func(rec model.ScheduleRecord) {
		if _, dup := seen[rec.Key()]; dup {
			stats.Duplicates++
			return
		}
		seen[rec.Key()] = struct{}{}
		out = append(out, rec)
	}

	for _, e := range entries {
		if !e.Composite.Valid {
			stats.DroppedEntries++
			stats.DroppedSubEntries += len(e.Subs)
			continue
		}

		jurisdiction := TrimJurisdiction(e.Name)
		add(rate.Record(policy, jurisdiction, "", PadCode(e.Code), e.Composite.Decimal, e.Footnote))
		if e.Umbrella {
			add(rate.Record(policy, jurisdiction, jurisdiction, PadCode(e.Code), e.Composite.Decimal, e.Footnote))
		}

		for _, sub := range e.Subs {
			if !sub.Composite.Valid || sub.Name == "" {
				stats.DroppedSubEntries++
				continue
			}
			add(rate.Record(policy, jurisdiction, sub.Name, PadCode(sub.Code), sub.Composite.Decimal, sub.Footnote))
		}
	}

	stats.Records = len(out)
	return out
}
