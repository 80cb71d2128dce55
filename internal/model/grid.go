package model

import "strings"

// ColumnGroups is the number of repeating {location, rate, code} groups per grid row.
const ColumnGroups = 3

// CellsPerRow is the widest grid row the assembler reads.
const CellsPerRow = ColumnGroups * 3

// Cell is one grid cell. Present is false when the extractor produced no text.
type Cell struct {
	Text    string
	Present bool
}

// NewCell builds a Cell from raw extractor text; blank text is treated as absent.
func NewCell(raw string) Cell {
	if strings.TrimSpace(raw) == "" {
		return Cell{}
	}
	return Cell{Text: raw, Present: true}
}

// Trimmed returns the cell text without surrounding whitespace.
func (c Cell) Trimmed() string {
	return strings.TrimSpace(c.Text)
}

// Group is one {location, rate, code} column group of a row.
type Group struct {
	Location Cell
	Rate     Cell
	Code     Cell
}

// Row is one grid row split into its column groups.
type Row struct {
	Groups [ColumnGroups]Group
}

// NewRow builds a Row from up to CellsPerRow raw cells. Missing trailing cells are absent,
// extra cells are ignored.
func NewRow(cells []string) Row {
	var padded [CellsPerRow]string
	copy(padded[:], cells)

	var row Row
	for g := 0; g < ColumnGroups; g++ {
		base := g * 3
		row.Groups[g] = Group{
			Location: NewCell(padded[base]),
			Rate:     NewCell(padded[base+1]),
			Code:     NewCell(padded[base+2]),
		}
	}
	return row
}

// Grid is the ordered body of an extracted rate table (header row excluded).
type Grid []Row

// NewGrid converts raw string rows into a Grid.
func NewGrid(rows [][]string) Grid {
	grid := make(Grid, 0, len(rows))
	for _, cells := range rows {
		grid = append(grid, NewRow(cells))
	}
	return grid
}
