package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripFootnote(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		footnote bool
		clean    string
	}{
		{"marked", "*Dutchess", true, "Dutchess"},
		{"marked with space", "  * Nassau ", true, "Nassau"},
		{"unmarked", "Albany", false, "Albany"},
		{"marker mid-name", "Port*Jervis", false, "Port*Jervis"},
		{"empty", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			footnote, clean := StripFootnote(tt.input, "*")
			assert.Equal(t, tt.footnote, footnote)
			assert.Equal(t, tt.clean, clean)
		})
	}
}

func TestCrossReference(t *testing.T) {
	tests := []struct {
		header string
		match  bool
		name   string
	}{
		{"Bronx – see New York City", true, "Bronx"},
		{"Kings (Brooklyn) - see New York City", true, "Kings (Brooklyn)"},
		{"Queens SEE new york city", true, "Queens"},
		{"Richmond (Staten Island) – see New York City ", true, "Richmond (Staten Island)"},
		{"New York City", false, "New York City"},
		{"Albany", false, "Albany"},
		{"see New York City for details", false, "see New York City for details"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			match, name := CrossReference(tt.header, "New York City")
			assert.Equal(t, tt.match, match)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestTrimSubJurisdiction(t *testing.T) {
	assert.Equal(t, "Yonkers", TrimSubJurisdiction("Yonkers (city)"))
	assert.Equal(t, "Rye", TrimSubJurisdiction("Rye (City) "))
	assert.Equal(t, "Mount Vernon", TrimSubJurisdiction("Mount Vernon"))
}

func TestTrimJurisdiction(t *testing.T) {
	assert.Equal(t, "Westchester", TrimJurisdiction("Westchester – except"))
	assert.Equal(t, "Oneida", TrimJurisdiction("Oneida - EXCEPT"))
	assert.Equal(t, "Exceptional", TrimJurisdiction("Exceptional"))
}

func TestPadCode(t *testing.T) {
	assert.Equal(t, "0181", PadCode("181"))
	assert.Equal(t, "0001", PadCode(" 1 "))
	assert.Equal(t, "8081", PadCode("8081"))
	assert.Equal(t, "", PadCode(""))
}
