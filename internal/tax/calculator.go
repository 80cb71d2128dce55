// Package tax quotes sales tax for a place or a coordinate against the current schedule.
package tax

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/salestax/internal/model"
	"github.com/sells-group/salestax/internal/schedule"
	"github.com/sells-group/salestax/pkg/geocode"
)

// Quote is a tax breakdown plus how it was reached.
type Quote struct {
	model.TaxBreakdown
	Tier  string        `json:"tier"`
	Place geocode.Place `json:"place"`
}

// Calculator quotes tax against whatever schedule the holder currently publishes.
type Calculator struct {
	holder   *schedule.Holder
	aliases  *schedule.Aliases
	reverser geocode.Reverser
	policy   model.Policy
}

// NewCalculator returns a calculator. reverser may be nil, in which case every
// coordinate quote falls back to the no-local rate.
func NewCalculator(holder *schedule.Holder, aliases *schedule.Aliases, reverser geocode.Reverser, policy model.Policy) *Calculator {
	return &Calculator{holder: holder, aliases: aliases, reverser: reverser, policy: policy}
}

// ForLocation quotes tax for a named jurisdiction and optional sub-jurisdiction.
// It never fails; an empty schedule or exhausted lookup yields the degraded default.
func (c *Calculator) ForLocation(jurisdiction, sub string, subtotal decimal.Decimal) Quote {
	s := c.holder.Load()
	if s == nil {
		zap.L().Warn("tax: no schedule loaded, using default rate")
		return Quote{TaxBreakdown: schedule.Default(c.policy, subtotal), Tier: "default"}
	}

	m, err := schedule.NewEngine(s, c.aliases).Lookup(jurisdiction, sub)
	if err != nil {
		if !errors.Is(err, schedule.ErrNoApplicableRate) {
			zap.L().Error("tax: lookup failed", zap.Error(err))
		}
		zap.L().Warn("tax: no applicable rate, using default rate",
			zap.String("jurisdiction", jurisdiction),
			zap.String("sub_jurisdiction", sub),
		)
		return Quote{TaxBreakdown: schedule.Default(c.policy, subtotal), Tier: "default"}
	}

	return Quote{TaxBreakdown: schedule.Compute(m.Record, subtotal), Tier: m.Tier.String()}
}

// ForCoordinates reverse-geocodes the point and quotes tax for the place found.
// Geocoding failures and places outside the schedule's region are treated as
// unresolved and fall through to the no-local rate.
func (c *Calculator) ForCoordinates(ctx context.Context, lat, lon float64, subtotal decimal.Decimal) Quote {
	place := geocode.Resolve(ctx, c.reverser, lat, lon)
	if !place.InRegion(c.policy.Region) {
		zap.L().Debug("tax: place outside region",
			zap.String("region", place.Region),
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
		)
		place = geocode.Place{Region: place.Region, State: place.State, Country: place.Country}
	}

	q := c.ForLocation(place.County, place.City, subtotal)
	q.Place = place
	return q
}
