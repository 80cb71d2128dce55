package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/salestax/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

var orderRowColumns = []string{
	"id", "latitude", "longitude", "subtotal", "ordered_at",
	"region", "jurisdiction", "sub_jurisdiction", "reporting_code",
	"region_rate", "county_rate", "city_rate", "special_districts", "special_rates_sum",
	"composite_rate", "tax_amount", "total_amount", "degraded", "created_at",
}

func TestPostgresStore_ReplaceSchedule(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM schedule_records`).WillReturnResult(pgxmock.NewResult("DELETE", 10))
	mock.ExpectCopyFrom(pgx.Identifier{"schedule_records"}, splitColumns(scheduleColumns)).WillReturnResult(3)
	mock.ExpectCommit()

	require.NoError(t, s.ReplaceSchedule(context.Background(), testRecords()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceSchedule_CopyFailsRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM schedule_records`).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"schedule_records"}, splitColumns(scheduleColumns)).
		WillReturnError(errors.New("copy failed"))
	mock.ExpectRollback()

	err := s.ReplaceSchedule(context.Background(), testRecords())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy schedule")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadSchedule(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT position, region, jurisdiction, sub_jurisdiction, .* FROM schedule_records ORDER BY position`).
		WillReturnRows(pgxmock.NewRows([]string{
			"position", "region", "jurisdiction", "sub_jurisdiction", "reporting_code", "special_districts",
			"composite_rate", "region_rate", "county_rate", "city_rate", "special_rates",
		}).
			AddRow(0, "NY", "Westchester", "Yonkers", "6511", `["MCTD"]`,
				"0.0887500000", "0.0400000000", "0.0000000000", "0.0450000000", `[{"name": "MCTD", "rate": 0.00375}]`).
			AddRow(1, "NY", "New York State only", "0", "", `[]`,
				"0.0400000000", "0.0400000000", "0.0000000000", "0.0000000000", `[]`))

	got, err := s.LoadSchedule(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, d("0.08875").Equal(got[0].CompositeRate))
	assert.True(t, d("0.045").Equal(got[0].CityRate))
	assert.Equal(t, []string{"MCTD"}, got[0].SpecialDistricts())
	assert.True(t, got[0].Balanced())
	assert.Equal(t, "0", got[1].SubJurisdiction)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadSchedule_BadDecimal(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM schedule_records`).
		WillReturnRows(pgxmock.NewRows([]string{
			"position", "region", "jurisdiction", "sub_jurisdiction", "reporting_code", "special_districts",
			"composite_rate", "region_rate", "county_rate", "city_rate", "special_rates",
		}).AddRow(0, "NY", "X", "0", "", `[]`, "nan?", "0.04", "0", "0", `[]`))

	_, err := s.LoadSchedule(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan schedule record")
	assert.Contains(t, err.Error(), `store: parse decimal "nan?"`)
}

func TestPostgresStore_CreateOrder(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	o := testOrder("o-1", time.Now().UTC(), "10", "0.04", "0.40", "Albany", 42.6, -73.7)

	args := make([]any, len(orderColumns))
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	mock.ExpectExec(`INSERT INTO orders \(id, latitude, .*created_at\) VALUES \(\$1, .*\$19\)`).
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateOrder(context.Background(), &o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateOrders(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	orders := []model.Order{
		testOrder("o-1", now, "10", "0.04", "0.40", "Albany", 42.6, -73.7),
		testOrder("o-2", now, "20", "0.04", "0.80", "Albany", 42.6, -73.7),
	}

	mock.ExpectCopyFrom(pgx.Identifier{"orders"}, orderColumns).WillReturnResult(2)

	n, err := s.CreateOrders(context.Background(), orders)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetOrder(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, latitude, longitude, subtotal::text, .* FROM orders WHERE id = \$1`).
		WithArgs("o-1").
		WillReturnRows(pgxmock.NewRows(orderRowColumns).AddRow(
			"o-1", 40.7, -74.0, "100.00", at,
			"NY", "Kings (Brooklyn)", "", "8081",
			"0.0400000000", "0.0450000000", "0.0000000000", `["MCTD"]`, "0.0037500000",
			"0.0887500000", "8.88", "108.88", false, at,
		))

	o, err := s.GetOrder(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, "o-1", o.ID)
	assert.True(t, d("8.88").Equal(o.Tax.TaxAmount))
	assert.True(t, d("0.045").Equal(o.Tax.LocalRate))
	assert.True(t, d("100").Equal(o.Tax.Subtotal))
	assert.Equal(t, []string{"MCTD"}, o.Tax.SpecialDistricts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetOrder_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM orders WHERE id = \$1`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetOrder(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListOrders(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders WHERE jurisdiction ILIKE \$1 AND composite_rate >= \$2`).
		WithArgs("%Kings%", "0.08").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(`FROM orders WHERE jurisdiction ILIKE \$1 AND composite_rate >= \$2 ORDER BY ordered_at DESC, id LIMIT \$3 OFFSET \$4`).
		WithArgs("%Kings%", "0.08", 5, 10).
		WillReturnRows(pgxmock.NewRows(orderRowColumns).AddRow(
			"o-11", 40.7, -74.0, "1", at,
			"NY", "Kings (Brooklyn)", "", "8081",
			"0.04", "0.045", "0", `[]`, "0.00375",
			"0.08875", "0.09", "1.09", false, at,
		))

	page, err := s.ListOrders(context.Background(), OrderFilter{
		Page: 3, PageSize: 5, Jurisdiction: "Kings", MinRate: dp("0.08"),
	})
	require.NoError(t, err)
	assert.Equal(t, 11, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "o-11", page.Items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListOrders_CountError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT`).WillReturnError(errors.New("db down"))

	_, err := s.ListOrders(context.Background(), OrderFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count orders")
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schedule_records`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDialect_Where(t *testing.T) {
	where, args := postgresDialect.where(OrderFilter{
		IDSearch:  "AbC",
		MinAmount: dp("5"),
		Bounds:    NewBounds(fp(40), fp(41), nil, nil),
	})
	assert.Equal(t, " WHERE LOWER(id) LIKE $1 AND total_amount >= $2 AND latitude >= $3 AND latitude <= $4", where)
	assert.Equal(t, []any{"%abc%", "5", 40.0, 41.0}, args)

	where, args = sqliteDialect.where(OrderFilter{MaxRate: dp("0.1")})
	assert.Equal(t, " WHERE CAST(composite_rate AS REAL) <= CAST(? AS REAL)", where)
	assert.Equal(t, []any{"0.1"}, args)

	where, args = postgresDialect.where(OrderFilter{})
	assert.Empty(t, where)
	assert.Nil(t, args)
}
