package store

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/salestax/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func fp(f float64) *float64 { return &f }

func testRecords() []model.ScheduleRecord {
	return []model.ScheduleRecord{
		{
			Region: "NY", Jurisdiction: "Westchester", SubJurisdiction: "0", ReportingCode: "5500",
			CompositeRate: d("0.08375"), RegionRate: d("0.04"), CountyRate: d("0.04"), CityRate: decimal.Zero,
			SpecialRates: []model.SpecialRate{{Name: "MCTD", Rate: d("0.00375")}},
		},
		{
			Region: "NY", Jurisdiction: "Westchester", SubJurisdiction: "Yonkers", ReportingCode: "6511",
			CompositeRate: d("0.08875"), RegionRate: d("0.04"), CountyRate: decimal.Zero, CityRate: d("0.045"),
			SpecialRates: []model.SpecialRate{{Name: "MCTD", Rate: d("0.00375")}},
		},
		{
			Region: "NY", Jurisdiction: "New York State only", SubJurisdiction: "0",
			CompositeRate: d("0.04"), RegionRate: d("0.04"), CountyRate: decimal.Zero, CityRate: decimal.Zero,
			SpecialRates: []model.SpecialRate{},
		},
	}
}

func testOrder(id string, at time.Time, subtotal, composite, tax string, jurisdiction string, lat, lon float64) model.Order {
	return model.Order{
		ID:        id,
		Latitude:  lat,
		Longitude: lon,
		Subtotal:  d(subtotal),
		Timestamp: at,
		CreatedAt: at,
		Tax: model.TaxBreakdown{
			Region:           "NY",
			Jurisdiction:     jurisdiction,
			RegionRate:       d("0.04"),
			CountyRate:       d(composite).Sub(d("0.04")),
			CityRate:         decimal.Zero,
			SpecialDistricts: []string{},
			SpecialRatesSum:  decimal.Zero,
			CompositeRate:    d(composite),
			Subtotal:         d(subtotal),
			TaxAmount:        d(tax),
			TotalAmount:      d(subtotal).Add(d(tax)),
		},
	}
}

func TestSQLite_ReplaceAndLoadSchedule(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.ReplaceSchedule(ctx, testRecords()))
	got, err := st.LoadSchedule(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Westchester", got[0].Jurisdiction)
	assert.Equal(t, "Yonkers", got[1].SubJurisdiction)
	assert.True(t, d("0.045").Equal(got[1].CityRate))
	assert.Equal(t, []string{"MCTD"}, got[1].SpecialDistricts())
	assert.True(t, d("0.00375").Equal(got[1].SpecialRates[0].Rate))
	assert.Empty(t, got[2].SpecialRates)
	for _, r := range got {
		assert.True(t, r.Balanced(), r.Jurisdiction)
	}

	// Replace drops everything from the previous load.
	require.NoError(t, st.ReplaceSchedule(ctx, testRecords()[:1]))
	got, err = st.LoadSchedule(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSQLite_LoadScheduleEmpty(t *testing.T) {
	st := newTestSQLiteStore(t)
	got, err := st.LoadSchedule(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_CreateAndGetOrder(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)

	o := testOrder("0b6f7c1e-aaaa-4bbb-8ccc-000000000001", at, "100.00", "0.08875", "8.88", "Kings (Brooklyn)", 40.65, -73.95)
	o.Tax.SpecialDistricts = []string{"MCTD"}
	require.NoError(t, st.CreateOrder(ctx, &o))

	got, err := st.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.True(t, d("100").Equal(got.Subtotal))
	assert.True(t, d("8.88").Equal(got.Tax.TaxAmount))
	assert.True(t, d("108.88").Equal(got.Tax.TotalAmount))
	assert.True(t, d("0.08875").Equal(got.Tax.CompositeRate))
	assert.Equal(t, []string{"MCTD"}, got.Tax.SpecialDistricts)
	assert.Equal(t, "Kings (Brooklyn)", got.Tax.Jurisdiction)
	assert.True(t, at.Equal(got.Timestamp))
	assert.InDelta(t, 40.65, got.Latitude, 1e-9)
	assert.False(t, got.Tax.Degraded)

	_, err = st.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_CreateOrdersAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var orders []model.Order
	for i := range 25 {
		jur := "Westchester"
		if i%5 == 0 {
			jur = "Kings (Brooklyn)"
		}
		orders = append(orders, testOrder(
			fmt.Sprintf("order-%02d", i),
			base.Add(time.Duration(i)*time.Hour),
			fmt.Sprintf("%d.00", 10*(i+1)), "0.08375", "1.00", jur,
			40.0+float64(i)*0.1, -74.0,
		))
	}
	n, err := st.CreateOrders(ctx, orders)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	t.Run("default page", func(t *testing.T) {
		page, err := st.ListOrders(ctx, OrderFilter{})
		require.NoError(t, err)
		assert.Equal(t, 25, page.TotalCount)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, DefaultPageSize, page.PageSize)
		assert.Equal(t, 3, page.TotalPages)
		require.Len(t, page.Items, 10)
		assert.Equal(t, "order-24", page.Items[0].ID)
	})

	t.Run("last page", func(t *testing.T) {
		page, err := st.ListOrders(ctx, OrderFilter{Page: 3, PageSize: 10})
		require.NoError(t, err)
		assert.Len(t, page.Items, 5)
	})

	t.Run("id search", func(t *testing.T) {
		page, err := st.ListOrders(ctx, OrderFilter{IDSearch: "ORDER-1"})
		require.NoError(t, err)
		assert.Equal(t, 10, page.TotalCount)
	})

	t.Run("time range", func(t *testing.T) {
		page, err := st.ListOrders(ctx, OrderFilter{From: base.Add(20 * time.Hour), To: base.Add(22 * time.Hour)})
		require.NoError(t, err)
		assert.Equal(t, 3, page.TotalCount)
	})

	t.Run("jurisdiction", func(t *testing.T) {
		page, err := st.ListOrders(ctx, OrderFilter{Jurisdiction: "kings"})
		require.NoError(t, err)
		assert.Equal(t, 5, page.TotalCount)
	})

	t.Run("amount range", func(t *testing.T) {
		// totals are 11, 21, ... 251; both bounds inclusive
		page, err := st.ListOrders(ctx, OrderFilter{MinAmount: dp("51"), MaxAmount: dp("101")})
		require.NoError(t, err)
		assert.Equal(t, 6, page.TotalCount)

		page, err = st.ListOrders(ctx, OrderFilter{MinAmount: dp("50"), MaxAmount: dp("100")})
		require.NoError(t, err)
		assert.Equal(t, 5, page.TotalCount)
	})

	t.Run("rate range", func(t *testing.T) {
		page, err := st.ListOrders(ctx, OrderFilter{MinRate: dp("0.09")})
		require.NoError(t, err)
		assert.Equal(t, 0, page.TotalCount)
		assert.Empty(t, page.Items)
		assert.NotNil(t, page.Items)
	})

	t.Run("bounds", func(t *testing.T) {
		page, err := st.ListOrders(ctx, OrderFilter{Bounds: NewBounds(fp(40.45), fp(40.95), nil, nil)})
		require.NoError(t, err)
		assert.Equal(t, 5, page.TotalCount)

		page, err = st.ListOrders(ctx, OrderFilter{Bounds: NewBounds(nil, nil, fp(-73.5), nil)})
		require.NoError(t, err)
		assert.Equal(t, 0, page.TotalCount)
	})
}

func TestSQLite_CreateOrdersEmpty(t *testing.T) {
	st := newTestSQLiteStore(t)
	n, err := st.CreateOrders(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSQLite_CreateOrdersDuplicateRollsBack(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	at := time.Now().UTC()
	o := testOrder("dup", at, "1", "0.04", "0.04", "Albany", 42, -73)

	_, err := st.CreateOrders(ctx, []model.Order{o, o})
	require.Error(t, err)

	page, err := st.ListOrders(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalCount)
}

func TestOrderFilter_Normalize(t *testing.T) {
	f := OrderFilter{Page: -1, PageSize: 500}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, MaxPageSize, f.PageSize)
	assert.Equal(t, 0, f.Offset())

	f = OrderFilter{Page: 3, PageSize: 20}.Normalize()
	assert.Equal(t, 40, f.Offset())
}

func TestNewBounds(t *testing.T) {
	assert.Nil(t, NewBounds(nil, nil, nil, nil))

	b := NewBounds(fp(40), nil, nil, fp(-73))
	require.NotNil(t, b)
	assert.Equal(t, 40.0, b.Min(1))
	assert.Equal(t, -73.0, b.Max(0))
	assert.True(t, math.IsInf(b.Min(0), -1))
	assert.True(t, math.IsInf(b.Max(1), 1))
}
