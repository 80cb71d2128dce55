package extract

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Entry is one jurisdiction header parsed from a column group, with the sub-jurisdictions
// that attached to it while it was open.
type Entry struct {
	Header    string // raw first line of the location cell
	Name      string // header without footnote marker or cross-reference suffix
	Group     int
	Footnote  bool
	Umbrella  bool
	CrossRef  bool
	Composite decimal.NullDecimal
	Code      string
	Subs      []SubEntry
}

// SubEntry is a sub-jurisdiction attached to an Entry.
type SubEntry struct {
	Name      string
	Composite decimal.NullDecimal
	Code      string
	Footnote  bool
}

// Stats counts what the pipeline kept and discarded.
type Stats struct {
	Rows              int `json:"rows"`
	Entries           int `json:"entries"`
	SubEntries        int `json:"sub_entries"`
	CrossReferences   int `json:"cross_references"`
	MalformedCells    int `json:"malformed_cells"`
	StarvedNames      int `json:"starved_names"`
	DroppedEntries    int `json:"dropped_entries"`
	DroppedSubEntries int `json:"dropped_sub_entries"`
	Duplicates        int `json:"duplicates"`
	Records           int `json:"records"`
}

func splitLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
