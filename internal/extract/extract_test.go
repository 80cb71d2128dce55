package extract

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/salestax/internal/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// nycRow places the umbrella jurisdiction in the third column group.
var nycRow = []string{"", "", "", "", "", "", "New York City", "8⅞", "8081"}

func grid(rows ...[]string) model.Grid {
	return model.NewGrid(rows)
}

func find(t *testing.T, recs []model.ScheduleRecord, jurisdiction, sub string) model.ScheduleRecord {
	t.Helper()
	for _, r := range recs {
		if r.Jurisdiction == jurisdiction && r.SubJurisdiction == sub {
			return r
		}
	}
	require.Failf(t, "record not found", "%s / %s", jurisdiction, sub)
	return model.ScheduleRecord{}
}

func count(recs []model.ScheduleRecord, jurisdiction string) int {
	n := 0
	for _, r := range recs {
		if r.Jurisdiction == jurisdiction {
			n++
		}
	}
	return n
}

func TestRun_SingleCountyEntry(t *testing.T) {
	res, err := Run(grid(
		nycRow,
		[]string{"Example County", "4½", "9901"},
	), model.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, 1, count(res.Records, "Example County"))
	rec := find(t, res.Records, "Example County", model.NoSubJurisdiction)
	assert.True(t, d("0.045").Equal(rec.CompositeRate))
	assert.True(t, d("0.04").Equal(rec.RegionRate))
	assert.True(t, d("0.005").Equal(rec.CountyRate))
	assert.True(t, rec.CityRate.IsZero())
	assert.Empty(t, rec.SpecialRates)
	assert.Equal(t, "9901", rec.ReportingCode)
}

func TestRun_FootnotedCountyWithCity(t *testing.T) {
	res, err := Run(grid(
		nycRow,
		[]string{"*Example County\nExample City", "8⅜", "9902"},
		[]string{"", "8⅞", "9903"},
	), model.DefaultPolicy())
	require.NoError(t, err)

	require.Equal(t, 2, count(res.Records, "Example County"))

	county := find(t, res.Records, "Example County", model.NoSubJurisdiction)
	assert.True(t, d("0.08375").Equal(county.CompositeRate))
	assert.True(t, d("0.04").Equal(county.CountyRate), "county rate %s", county.CountyRate)
	assert.Equal(t, []string{"MCTD"}, county.SpecialDistricts())
	assert.True(t, d("0.00375").Equal(county.SpecialTotal()))

	city := find(t, res.Records, "Example County", "Example City")
	assert.True(t, d("0.08875").Equal(city.CompositeRate))
	assert.True(t, city.CountyRate.IsZero())
	assert.True(t, d("0.045").Equal(city.CityRate), "city rate %s", city.CityRate)
	assert.Equal(t, "9903", city.ReportingCode)
	assert.Equal(t, []string{"MCTD"}, city.SpecialDistricts())
}

func TestRun_CrossReferencesUseCanonicalRate(t *testing.T) {
	res, err := Run(grid(
		[]string{"*Bronx – see New York City", "", "", "Albany", "8", "0181", "*New York City", "8⅞", "8081"},
		[]string{"Kings (Brooklyn) – see New York City", "", ""},
	), model.DefaultPolicy())
	require.NoError(t, err)

	bronx := find(t, res.Records, "Bronx", model.NoSubJurisdiction)
	assert.True(t, d("0.08875").Equal(bronx.CompositeRate))
	assert.Equal(t, "8081", bronx.ReportingCode)
	assert.Equal(t, []string{"MCTD"}, bronx.SpecialDistricts())

	kings := find(t, res.Records, "Kings (Brooklyn)", model.NoSubJurisdiction)
	assert.True(t, d("0.08875").Equal(kings.CompositeRate))
	assert.Equal(t, 2, res.Stats.CrossReferences)
}

func TestRun_UmbrellaRecords(t *testing.T) {
	res, err := Run(grid(
		[]string{"*New York City", "8⅞", "8081"},
	), model.DefaultPolicy())
	require.NoError(t, err)

	county := find(t, res.Records, "New York City", model.NoSubJurisdiction)
	assert.True(t, d("0.045").Equal(county.CountyRate))

	city := find(t, res.Records, "New York City", "New York City")
	assert.True(t, d("0.045").Equal(city.CityRate))
	assert.True(t, city.Balanced())
}

func TestRun_UmbrellaWithoutRateUsesCanonical(t *testing.T) {
	res, err := Run(grid(
		[]string{"New York City", "8⅞", "8081"},
		[]string{"New York City", "", ""},
	), model.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Stats.Entries)
	rec := find(t, res.Records, "New York City", model.NoSubJurisdiction)
	assert.True(t, d("0.08875").Equal(rec.CompositeRate))
	assert.Equal(t, 2, count(res.Records, "New York City"), "duplicate umbrella rows collapse")
}

func TestRun_MissingCanonicalEntry(t *testing.T) {
	_, err := Run(grid(
		[]string{"Albany", "8", "0181"},
		[]string{"New York City", "n/a", "8081"},
	), model.DefaultPolicy())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCanonicalEntry))
}

func TestRun_SelfReferenceIsCyclic(t *testing.T) {
	_, err := Run(grid(
		nycRow,
		[]string{"New York City – see New York City", "", ""},
	), model.DefaultPolicy())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCyclicReference))
}

func TestRun_StarvedNamesAreDiscarded(t *testing.T) {
	res, err := Run(grid(
		nycRow,
		[]string{"Westchester – except\nMount Vernon (city)\nNew Rochelle (city)\nRye (city)", "8⅜", "5901"},
		[]string{"", "8⅜", "6551"},
		[]string{"Wyoming", "8", "6101"},
		[]string{"", "9", "9999"},
	), model.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, 2, count(res.Records, "Westchester"))
	find(t, res.Records, "Westchester", "Mount Vernon")
	assert.Equal(t, 2, res.Stats.StarvedNames)
	assert.Equal(t, 1, count(res.Records, "Wyoming"), "a rate row with nothing pending attaches nothing")
}

func TestRun_ContinuationLinesUnderFixedHeadersCountAsStarved(t *testing.T) {
	res, err := Run(grid(
		[]string{"New York City\nBorough Hall", "8⅞", "8081"},
		[]string{"Bronx – see New York City\nRiverdale\nFordham", "", ""},
		[]string{"", "8⅞", "8082"},
	), model.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Stats.StarvedNames)
	assert.Equal(t, 1, count(res.Records, "Bronx"), "names under a cross-reference never become sub-jurisdictions")
}

func TestRun_ColumnGroupsAreIndependent(t *testing.T) {
	res, err := Run(grid(
		nycRow,
		[]string{"Erie\nBuffalo", "8¾", "1401", "Oneida\nRome (city)\nUtica (city)", "8¾", "3001"},
		[]string{"", "", "", "", "8¾", "3011"},
		[]string{"", "", "", "", "8¾", "3021"},
		[]string{"", "8¾", "1411"},
	), model.DefaultPolicy())
	require.NoError(t, err)

	buffalo := find(t, res.Records, "Erie", "Buffalo")
	assert.Equal(t, "1411", buffalo.ReportingCode)
	assert.Equal(t, "3011", find(t, res.Records, "Oneida", "Rome").ReportingCode)
	assert.Equal(t, "3021", find(t, res.Records, "Oneida", "Utica").ReportingCode)
	assert.Equal(t, 0, res.Stats.StarvedNames)
}

func TestRun_SubEntryInheritsParentRate(t *testing.T) {
	res, err := Run(grid(
		nycRow,
		[]string{"*Orange\nNewburgh (city)", "8⅛", "3501"},
		[]string{"", "", "3511"},
	), model.DefaultPolicy())
	require.NoError(t, err)

	city := find(t, res.Records, "Orange", "Newburgh")
	assert.True(t, d("0.08125").Equal(city.CompositeRate))
	assert.True(t, city.Balanced())
	assert.Equal(t, []string{"MCTD"}, city.SpecialDistricts(), "footnote inherited from parent")
}

func TestRun_MalformedCellsDropOnlyTheirRows(t *testing.T) {
	res, err := Run(grid(
		nycRow,
		[]string{"Broome\nBinghamton (city)\nJohnson City", "8x", "0301"},
		[]string{"", "8", "0311"},
		[]string{"", "", "0321"},
		[]string{"Cayuga\nAuburn (city)", "8", "0501"},
		[]string{"", "eight", "0511"},
	), model.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, 0, count(res.Records, "Broome"), "entry without composite drops its subs")
	assert.Equal(t, 1, count(res.Records, "Cayuga"))
	assert.Equal(t, 2, res.Stats.MalformedCells)
	assert.Equal(t, 1, res.Stats.DroppedEntries)
	assert.Equal(t, 3, res.Stats.DroppedSubEntries)
}

func TestRun_EntryWithoutRateIsDropped(t *testing.T) {
	res, err := Run(grid(
		nycRow,
		[]string{"Placeholder", "", ""},
	), model.DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, 0, count(res.Records, "Placeholder"))
	assert.Equal(t, 1, res.Stats.DroppedEntries)
}

func TestRun_NoLocalJurisdiction(t *testing.T) {
	res, err := Run(grid(
		nycRow,
		[]string{"*New York State only", "4", ""},
	), model.DefaultPolicy())
	require.NoError(t, err)

	rec := find(t, res.Records, "New York State only", model.NoSubJurisdiction)
	assert.True(t, rec.CountyRate.IsZero())
	assert.Empty(t, rec.SpecialRates)
	assert.True(t, d("0.04").Equal(rec.CompositeRate))
}

func TestRun_Deduplicates(t *testing.T) {
	res, err := Run(grid(
		nycRow,
		[]string{"Albany", "8", "181"},
		[]string{"Albany", "8", "0181"},
		[]string{"Albany", "8", "0182"},
	), model.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, 2, count(res.Records, "Albany"))
	assert.Equal(t, 1, res.Stats.Duplicates)
}

func TestRun_Deterministic(t *testing.T) {
	rows := [][]string{
		nycRow,
		{"Albany", "8", "0181", "*Dutchess\nPoughkeepsie (city)", "8⅛", "1301"},
		{"", "", "", "", "8⅛", "1311"},
		{"Allegany", "8½", "0221"},
		{"Bronx – see New York City", "", ""},
	}
	reordered := [][]string{rows[3], rows[0], rows[4], rows[1], rows[2]}

	first, err := Run(model.NewGrid(rows), model.DefaultPolicy())
	require.NoError(t, err)
	second, err := Run(model.NewGrid(rows), model.DefaultPolicy())
	require.NoError(t, err)
	third, err := Run(model.NewGrid(reordered), model.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, first.Records, second.Records)
	assert.ElementsMatch(t, first.Records, third.Records)
}

func TestRun_AllRecordsBalanced(t *testing.T) {
	res, err := Run(grid(
		[]string{"Albany", "8", "0181", "*Dutchess\nPoughkeepsie (city)\nBeacon (city)", "8⅛", "1301", "*New York City", "8⅞", "8081"},
		[]string{"", "", "", "", "8⅛", "1311", "*Bronx – see New York City", "", ""},
		[]string{"Allegany", "8½", "0221", "", "8⅜", "1321"},
		[]string{"*Westchester – except\nYonkers (city)", "8⅜", "5901"},
		[]string{"", "8⅞", "6511"},
	), model.DefaultPolicy())
	require.NoError(t, err)
	require.NotEmpty(t, res.Records)

	for _, rec := range res.Records {
		assert.True(t, rec.Balanced(), "%s / %s", rec.Jurisdiction, rec.SubJurisdiction)
	}
}
