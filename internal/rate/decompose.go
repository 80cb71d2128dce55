package rate

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sells-group/salestax/internal/model"
)

// Places is the number of decimal places every stored rate is rounded to.
const Places = 10

// Components is a composite rate split into its region, local and overlay parts.
type Components struct {
	RegionRate   decimal.Decimal
	CountyRate   decimal.Decimal
	CityRate     decimal.Decimal
	SpecialRates []model.SpecialRate
}

// Decompose splits composite into components under policy. The local component goes to the
// city slot for sub-jurisdiction records and to the county slot otherwise. The "no local rate"
// jurisdiction never carries a local or overlay component, even when footnoted.
func Decompose(policy model.Policy, composite decimal.Decimal, footnote, isSub bool, jurisdiction string) Components {
	c := Components{
		RegionRate:   policy.RegionRate.Round(Places),
		CountyRate:   decimal.Zero,
		CityRate:     decimal.Zero,
		SpecialRates: []model.SpecialRate{},
	}

	if strings.EqualFold(strings.TrimSpace(jurisdiction), policy.NoLocalName) {
		return c
	}

	specials := decimal.Zero
	if footnote {
		c.SpecialRates = append(c.SpecialRates, model.SpecialRate{
			Name: policy.OverlayName,
			Rate: policy.OverlayRate.Round(Places),
		})
		specials = specials.Add(policy.OverlayRate)
	}

	local := composite.Sub(policy.RegionRate).Sub(specials).Round(Places)
	if isSub {
		c.CityRate = local
	} else {
		c.CountyRate = local
	}
	return c
}

// Record assembles a schedule record for the given location and composite.
func Record(policy model.Policy, jurisdiction, sub, code string, composite decimal.Decimal, footnote bool) model.ScheduleRecord {
	isSub := sub != "" && sub != model.NoSubJurisdiction
	if !isSub {
		sub = model.NoSubJurisdiction
	}
	c := Decompose(policy, composite, footnote, isSub, jurisdiction)
	return model.ScheduleRecord{
		Region:          policy.Region,
		Jurisdiction:    jurisdiction,
		SubJurisdiction: sub,
		ReportingCode:   code,
		CompositeRate:   composite.Round(Places),
		RegionRate:      c.RegionRate,
		CountyRate:      c.CountyRate,
		CityRate:        c.CityRate,
		SpecialRates:    c.SpecialRates,
	}
}
