package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/sells-group/salestax/internal/model"
)

// Compute applies rec to subtotal. The tax amount is rounded half-up to cents;
// the rates are carried unrounded.
func Compute(rec model.ScheduleRecord, subtotal decimal.Decimal) model.TaxBreakdown {
	sub := rec.SubJurisdiction
	if !rec.HasSubJurisdiction() {
		sub = ""
	}
	tax := subtotal.Mul(rec.CompositeRate).Round(2)
	return model.TaxBreakdown{
		Region:           rec.Region,
		Jurisdiction:     rec.Jurisdiction,
		SubJurisdiction:  sub,
		ReportingCode:    rec.ReportingCode,
		RegionRate:       rec.RegionRate,
		CountyRate:       rec.CountyRate,
		CityRate:         rec.CityRate,
		LocalRate:        rec.LocalRate(),
		SpecialDistricts: rec.SpecialDistricts(),
		SpecialRatesSum:  rec.SpecialTotal(),
		CompositeRate:    rec.CompositeRate,
		Subtotal:         subtotal,
		TaxAmount:        tax,
		TotalAmount:      subtotal.Add(tax),
	}
}

// Default is the degraded breakdown used when no schedule record applies. It
// carries no jurisdiction labels so callers can tell it from a real match.
func Default(policy model.Policy, subtotal decimal.Decimal) model.TaxBreakdown {
	tax := subtotal.Mul(policy.DefaultRate).Round(2)
	return model.TaxBreakdown{
		Region:           policy.Region,
		RegionRate:       policy.DefaultRate,
		CountyRate:       decimal.Zero,
		CityRate:         decimal.Zero,
		LocalRate:        decimal.Zero,
		SpecialDistricts: []string{},
		SpecialRatesSum:  decimal.Zero,
		CompositeRate:    policy.DefaultRate,
		Subtotal:         subtotal,
		TaxAmount:        tax,
		TotalAmount:      subtotal.Add(tax),
		Degraded:         true,
	}
}
