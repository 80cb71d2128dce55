package model

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/twpayne/go-geom"
)

// Order is a taxed sale at a point location.
type Order struct {
	ID        string          `json:"id"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Timestamp time.Time       `json:"timestamp"`
	Tax       TaxBreakdown    `json:"tax"`
	CreatedAt time.Time       `json:"created_at"`
}

// Coord returns the order location as an XY coordinate (longitude, latitude).
func (o Order) Coord() geom.Coord {
	return geom.Coord{o.Longitude, o.Latitude}
}

// TotalAmount returns subtotal plus tax.
func (o Order) TotalAmount() decimal.Decimal {
	return o.Subtotal.Add(o.Tax.TaxAmount)
}
