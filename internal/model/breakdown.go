package model

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the ISO-4217 code of all computed amounts.
const Currency = money.USD

// TaxBreakdown is the result of applying a schedule record to a subtotal.
// Degraded is set when no schedule record applied and the default rate was used.
type TaxBreakdown struct {
	Region           string          `json:"region"`
	Jurisdiction     string          `json:"jurisdiction"`
	SubJurisdiction  string          `json:"sub_jurisdiction"`
	ReportingCode    string          `json:"reporting_code,omitempty"`
	RegionRate       decimal.Decimal `json:"region_rate"`
	CountyRate       decimal.Decimal `json:"county_rate"`
	CityRate         decimal.Decimal `json:"city_rate"`
	LocalRate        decimal.Decimal `json:"local_rate"`
	SpecialDistricts []string        `json:"special_district_names"`
	SpecialRatesSum  decimal.Decimal `json:"special_rates_sum"`
	CompositeRate    decimal.Decimal `json:"composite_rate"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Degraded         bool            `json:"degraded"`
}

// Matched reports whether the breakdown came from a schedule record.
func (b TaxBreakdown) Matched() bool {
	return !b.Degraded && b.Jurisdiction != ""
}

// DisplayTax renders the tax amount in currency notation, e.g. "$8.88".
func (b TaxBreakdown) DisplayTax() string {
	return toMoney(b.TaxAmount).Display()
}

// DisplayTotal renders the subtotal plus tax in currency notation.
func (b TaxBreakdown) DisplayTotal() string {
	return toMoney(b.TotalAmount).Display()
}

func toMoney(d decimal.Decimal) *money.Money {
	cents := d.Shift(2).Round(0).IntPart()
	return money.New(cents, Currency)
}
