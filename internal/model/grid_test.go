package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRow_SplitsGroups(t *testing.T) {
	row := NewRow([]string{"Albany", "8", "0181", "", "", "", "*Bronx", "8⅞", "6511"})

	assert.Equal(t, "Albany", row.Groups[0].Location.Text)
	assert.Equal(t, "8", row.Groups[0].Rate.Trimmed())
	assert.False(t, row.Groups[1].Location.Present)
	assert.False(t, row.Groups[1].Rate.Present)
	assert.Equal(t, "*Bronx", row.Groups[2].Location.Text)
	assert.Equal(t, "6511", row.Groups[2].Code.Trimmed())
}

func TestNewRow_ShortAndLongRows(t *testing.T) {
	short := NewRow([]string{"Albany"})
	assert.True(t, short.Groups[0].Location.Present)
	assert.False(t, short.Groups[0].Rate.Present)
	assert.False(t, short.Groups[2].Code.Present)

	long := NewRow([]string{"a", "1", "2", "b", "3", "4", "c", "5", "6", "overflow"})
	assert.Equal(t, "c", long.Groups[2].Location.Text)
}

func TestNewCell_BlankIsAbsent(t *testing.T) {
	assert.False(t, NewCell("   ").Present)
	assert.False(t, NewCell("\n").Present)
	assert.True(t, NewCell(" x ").Present)
}
