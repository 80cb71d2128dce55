package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SpecialRate is one overlay district component of a composite rate.
type SpecialRate struct {
	Name string          `json:"name"`
	Rate decimal.Decimal `json:"rate"`
}

// ScheduleRecord is the flattened, persisted unit of a rate schedule.
// Exactly one of CountyRate and CityRate carries the local component.
type ScheduleRecord struct {
	Region          string          `json:"region"`
	Jurisdiction    string          `json:"jurisdiction"`
	SubJurisdiction string          `json:"sub_jurisdiction"`
	ReportingCode   string          `json:"reporting_code"`
	CompositeRate   decimal.Decimal `json:"composite_rate"`
	RegionRate      decimal.Decimal `json:"region_rate"`
	CountyRate      decimal.Decimal `json:"county_rate"`
	CityRate        decimal.Decimal `json:"city_rate"`
	SpecialRates    []SpecialRate   `json:"special_rates"`
}

// RecordKey is the uniqueness key of a schedule.
type RecordKey struct {
	Region          string
	Jurisdiction    string
	SubJurisdiction string
	ReportingCode   string
}

// Key returns the record's uniqueness key.
func (r ScheduleRecord) Key() RecordKey {
	return RecordKey{
		Region:          r.Region,
		Jurisdiction:    r.Jurisdiction,
		SubJurisdiction: r.SubJurisdiction,
		ReportingCode:   r.ReportingCode,
	}
}

// HasSubJurisdiction reports whether the record is sub-jurisdiction level.
func (r ScheduleRecord) HasSubJurisdiction() bool {
	s := strings.TrimSpace(r.SubJurisdiction)
	return s != "" && s != NoSubJurisdiction
}

// LocalRate returns the county or city component, whichever is populated.
func (r ScheduleRecord) LocalRate() decimal.Decimal {
	return r.CountyRate.Add(r.CityRate)
}

// SpecialDistricts returns the overlay district names in order.
func (r ScheduleRecord) SpecialDistricts() []string {
	names := make([]string, 0, len(r.SpecialRates))
	for _, sr := range r.SpecialRates {
		names = append(names, sr.Name)
	}
	return names
}

// SpecialTotal sums the overlay district rates.
func (r ScheduleRecord) SpecialTotal() decimal.Decimal {
	total := decimal.Zero
	for _, sr := range r.SpecialRates {
		total = total.Add(sr.Rate)
	}
	return total
}

// Balanced reports whether region + local + special components equal the composite
// within 10 decimal places.
func (r ScheduleRecord) Balanced() bool {
	sum := r.RegionRate.Add(r.LocalRate()).Add(r.SpecialTotal())
	return sum.Round(10).Equal(r.CompositeRate.Round(10))
}
