package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sells-group/salestax/internal/store"
)

// query wraps url.Values and remembers the first parse failure.
type query struct {
	v   url.Values
	err error
}

func (q *query) str(key string) string {
	return strings.TrimSpace(q.v.Get(key))
}

func (q *query) fail(key, raw string) {
	if q.err == nil {
		q.err = fmt.Errorf("invalid %s %q", key, raw)
	}
}

func (q *query) integer(key string) int {
	raw := q.str(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(key, raw)
	}
	return n
}

func (q *query) float(key string) float64 {
	p := q.optFloat(key)
	if p == nil {
		return 0
	}
	return *p
}

func (q *query) optFloat(key string) *float64 {
	raw := q.str(key)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.fail(key, raw)
		return nil
	}
	return &f
}

func (q *query) optDecimal(key string) *decimal.Decimal {
	raw := q.str(key)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		q.fail(key, raw)
		return nil
	}
	return &d
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func (q *query) timestamp(key string) time.Time {
	raw := q.str(key)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	q.fail(key, raw)
	return time.Time{}
}

// subtotal reads a required non-negative decimal.
func (q *query) subtotal() decimal.Decimal {
	raw := q.str("subtotal")
	if raw == "" {
		if q.err == nil {
			q.err = fmt.Errorf("subtotal is required")
		}
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		q.fail("subtotal", raw)
		return decimal.Zero
	}
	return d
}

// orderFilter maps list query parameters onto a store filter. The parameter
// names follow the dashboard client.
func orderFilter(v url.Values) (store.OrderFilter, error) {
	q := &query{v: v}
	f := store.OrderFilter{
		Page:         q.integer("page"),
		PageSize:     q.integer("pageSize"),
		IDSearch:     q.str("orderIdSearch"),
		From:         q.timestamp("fromDate"),
		To:           q.timestamp("toDate"),
		Jurisdiction: q.str("county"),
		MinAmount:    q.optDecimal("minAmount"),
		MaxAmount:    q.optDecimal("maxAmount"),
		MinRate:      q.optDecimal("minTaxRate"),
		MaxRate:      q.optDecimal("maxTaxRate"),
		Bounds: store.NewBounds(
			q.optFloat("minLat"), q.optFloat("maxLat"),
			q.optFloat("minLon"), q.optFloat("maxLon"),
		),
	}
	if q.err != nil {
		return store.OrderFilter{}, q.err
	}
	return f.Normalize(), nil
}
