package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/salestax/internal/model"
)

// ErrNotFound is returned when a lookup by id matches nothing.
var ErrNotFound = errors.New("store: not found")

// Page size bounds for ListOrders.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// OrderFilter specifies criteria for listing orders. Zero values are unset.
type OrderFilter struct {
	Page     int `json:"page,omitempty"`
	PageSize int `json:"page_size,omitempty"`

	IDSearch     string           `json:"id_search,omitempty"`
	From         time.Time        `json:"from,omitempty"`
	To           time.Time        `json:"to,omitempty"`
	Jurisdiction string           `json:"jurisdiction,omitempty"`
	MinAmount    *decimal.Decimal `json:"min_amount,omitempty"` // on total amount
	MaxAmount    *decimal.Decimal `json:"max_amount,omitempty"`
	MinRate      *decimal.Decimal `json:"min_rate,omitempty"` // on composite rate
	MaxRate      *decimal.Decimal `json:"max_rate,omitempty"`
	// Bounds limits orders to a lon/lat box. Infinite edges are ignored.
	Bounds *geom.Bounds `json:"-"`
}

// Normalize clamps paging to [1, MaxPageSize].
func (f OrderFilter) Normalize() OrderFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

// Offset returns the row offset of the page.
func (f OrderFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// OrderPage is one page of orders plus the unpaged total.
type OrderPage struct {
	Items      []model.Order `json:"items"`
	TotalCount int           `json:"total_count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

func newOrderPage(items []model.Order, total int, f OrderFilter) *OrderPage {
	if items == nil {
		items = []model.Order{}
	}
	return &OrderPage{
		Items:      items,
		TotalCount: total,
		Page:       f.Page,
		PageSize:   f.PageSize,
		TotalPages: (total + f.PageSize - 1) / f.PageSize,
	}
}

// Store defines the persistence interface for schedules and orders.
type Store interface {
	// Schedule
	ReplaceSchedule(ctx context.Context, records []model.ScheduleRecord) error
	LoadSchedule(ctx context.Context) ([]model.ScheduleRecord, error)

	// Orders
	CreateOrder(ctx context.Context, o *model.Order) error
	CreateOrders(ctx context.Context, orders []model.Order) (int, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) (*OrderPage, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const scheduleColumns = "position, region, jurisdiction, sub_jurisdiction, reporting_code, special_districts, composite_rate, region_rate, county_rate, city_rate, special_rates"

var orderColumns = []string{
	"id", "latitude", "longitude", "subtotal", "ordered_at",
	"region", "jurisdiction", "sub_jurisdiction", "reporting_code",
	"region_rate", "county_rate", "city_rate", "special_districts", "special_rates_sum",
	"composite_rate", "tax_amount", "total_amount", "degraded", "created_at",
}

// dialect captures the SQL differences between the two backends.
type dialect struct {
	placeholder func(n int) string
	// text renders a column so it scans into a Go string.
	text func(col string) string
	// num renders a decimal column or placeholder for numeric comparison.
	num  func(col string) string
	like string
}

func (d dialect) orderSelect() string {
	cols := make([]string, len(orderColumns))
	for i, c := range orderColumns {
		switch c {
		case "subtotal", "region_rate", "county_rate", "city_rate", "special_districts",
			"special_rates_sum", "composite_rate", "tax_amount", "total_amount":
			cols[i] = d.text(c)
		default:
			cols[i] = c
		}
	}
	return strings.Join(cols, ", ")
}

func (d dialect) placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = d.placeholder(from + i)
	}
	return strings.Join(ph, ", ")
}

// where builds the WHERE clause for f. Arguments are numbered from 1.
func (d dialect) where(f OrderFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(expr string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(expr, d.placeholder(len(args))))
	}

	if s := strings.TrimSpace(f.IDSearch); s != "" {
		add("LOWER(id) LIKE %s", "%"+strings.ToLower(s)+"%")
	}
	if !f.From.IsZero() {
		add("ordered_at >= %s", f.From.UTC())
	}
	if !f.To.IsZero() {
		add("ordered_at <= %s", f.To.UTC())
	}
	if s := strings.TrimSpace(f.Jurisdiction); s != "" {
		add("jurisdiction "+d.like+" %s", "%"+s+"%")
	}
	if f.MinAmount != nil {
		add(d.num("total_amount")+" >= "+d.num("%s"), f.MinAmount.String())
	}
	if f.MaxAmount != nil {
		add(d.num("total_amount")+" <= "+d.num("%s"), f.MaxAmount.String())
	}
	if f.MinRate != nil {
		add(d.num("composite_rate")+" >= "+d.num("%s"), f.MinRate.String())
	}
	if f.MaxRate != nil {
		add(d.num("composite_rate")+" <= "+d.num("%s"), f.MaxRate.String())
	}
	if b := f.Bounds; b != nil && !b.IsEmpty() {
		edges := []struct {
			expr string
			v    float64
		}{
			{"longitude >= %s", b.Min(0)},
			{"latitude >= %s", b.Min(1)},
			{"longitude <= %s", b.Max(0)},
			{"latitude <= %s", b.Max(1)},
		}
		for _, e := range edges {
			if !math.IsInf(e.v, 0) {
				add(e.expr, e.v)
			}
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// NewBounds returns a lon/lat box where a nil edge is unbounded.
func NewBounds(minLat, maxLat, minLon, maxLon *float64) *geom.Bounds {
	if minLat == nil && maxLat == nil && minLon == nil && maxLon == nil {
		return nil
	}
	edge := func(p *float64, def float64) float64 {
		if p == nil {
			return def
		}
		return *p
	}
	return geom.NewBounds(geom.XY).Set(
		edge(minLon, math.Inf(-1)), edge(minLat, math.Inf(-1)),
		edge(maxLon, math.Inf(1)), edge(maxLat, math.Inf(1)),
	)
}

func splitColumns(cols string) []string {
	parts := strings.Split(cols, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanOrder(row scannable) (*model.Order, error) {
	var (
		o                                                 model.Order
		subtotal, regionRate, countyRate, cityRate, names string
		specialsSum, composite, taxAmount, totalAmount    string
	)
	err := row.Scan(
		&o.ID, &o.Latitude, &o.Longitude, &subtotal, &o.Timestamp,
		&o.Tax.Region, &o.Tax.Jurisdiction, &o.Tax.SubJurisdiction, &o.Tax.ReportingCode,
		&regionRate, &countyRate, &cityRate, &names, &specialsSum,
		&composite, &taxAmount, &totalAmount, &o.Tax.Degraded, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	dec := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&o.Subtotal, subtotal},
		{&o.Tax.RegionRate, regionRate},
		{&o.Tax.CountyRate, countyRate},
		{&o.Tax.CityRate, cityRate},
		{&o.Tax.SpecialRatesSum, specialsSum},
		{&o.Tax.CompositeRate, composite},
		{&o.Tax.TaxAmount, taxAmount},
		{&o.Tax.TotalAmount, totalAmount},
	}
	for _, d := range dec {
		v, err := decimal.NewFromString(d.src)
		if err != nil {
			return nil, eris.Wrapf(err, "store: parse decimal %q", d.src)
		}
		*d.dst = v
	}
	if o.Tax.SpecialDistricts, err = model.DecodeNames(names); err != nil {
		return nil, err
	}
	o.Tax.Subtotal = o.Subtotal
	o.Tax.LocalRate = o.Tax.CountyRate.Add(o.Tax.CityRate)
	o.Timestamp = o.Timestamp.UTC()
	o.CreatedAt = o.CreatedAt.UTC()
	return &o, nil
}

func scanScheduleRecord(row scannable) (model.ScheduleRecord, error) {
	var (
		r                                            model.ScheduleRecord
		pos                                          int
		names, composite, region, county, city, sprs string
	)
	if err := row.Scan(&pos, &r.Region, &r.Jurisdiction, &r.SubJurisdiction, &r.ReportingCode,
		&names, &composite, &region, &county, &city, &sprs); err != nil {
		return r, err
	}
	dec := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&r.CompositeRate, composite},
		{&r.RegionRate, region},
		{&r.CountyRate, county},
		{&r.CityRate, city},
	}
	for _, d := range dec {
		v, err := decimal.NewFromString(d.src)
		if err != nil {
			return r, eris.Wrapf(err, "store: parse decimal %q", d.src)
		}
		*d.dst = v
	}
	var err error
	r.SpecialRates, err = model.DecodeSpecialRates(sprs)
	return r, err
}

// numEncoder converts a decimal into the backend's bind value.
type numEncoder func(decimal.Decimal) any

// scheduleRow flattens a record into column order.
func scheduleRow(pos int, r model.ScheduleRecord, num numEncoder) ([]any, error) {
	names, err := model.EncodeNames(r.SpecialDistricts())
	if err != nil {
		return nil, err
	}
	specials, err := model.EncodeSpecialRates(r.SpecialRates)
	if err != nil {
		return nil, err
	}
	sub := r.SubJurisdiction
	if sub == "" {
		sub = model.NoSubJurisdiction
	}
	return []any{
		pos, r.Region, r.Jurisdiction, sub, r.ReportingCode, names,
		num(r.CompositeRate), num(r.RegionRate), num(r.CountyRate), num(r.CityRate),
		specials,
	}, nil
}

// orderRow flattens an order into orderColumns order.
func orderRow(o *model.Order, num numEncoder) ([]any, error) {
	names, err := model.EncodeNames(o.Tax.SpecialDistricts)
	if err != nil {
		return nil, err
	}
	return []any{
		o.ID, o.Latitude, o.Longitude, num(o.Subtotal), o.Timestamp.UTC(),
		o.Tax.Region, o.Tax.Jurisdiction, o.Tax.SubJurisdiction, o.Tax.ReportingCode,
		num(o.Tax.RegionRate), num(o.Tax.CountyRate), num(o.Tax.CityRate), names,
		num(o.Tax.SpecialRatesSum), num(o.Tax.CompositeRate),
		num(o.Tax.TaxAmount), num(o.Tax.TotalAmount), o.Tax.Degraded, o.CreatedAt.UTC(),
	}, nil
}
