// Package rate parses printed percentage tokens and splits composite rates into components.
package rate

import (
	"errors"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// ErrMalformedRate is returned for tokens that are not <digits><optional fraction glyph>.
var ErrMalformedRate = errors.New("malformed rate")

var tokenPattern = regexp.MustCompile(`^(\d+)([¼½¾⅛⅜⅝⅞])?$`)

var hundred = decimal.NewFromInt(100)

// glyphs maps each vulgar fraction glyph to its exact value in percentage points.
var glyphs = map[string]decimal.Decimal{
	"¼": decimal.RequireFromString("0.25"),
	"½": decimal.RequireFromString("0.5"),
	"¾": decimal.RequireFromString("0.75"),
	"⅛": decimal.RequireFromString("0.125"),
	"⅜": decimal.RequireFromString("0.375"),
	"⅝": decimal.RequireFromString("0.625"),
	"⅞": decimal.RequireFromString("0.875"),
}

// Parse converts a printed percentage such as "8⅜" into a fraction (0.08375).
// Whitespace anywhere in the token is ignored.
func Parse(token string) (decimal.Decimal, error) {
	s := strings.Join(strings.Fields(token), "")
	m := tokenPattern.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero, eris.Wrapf(ErrMalformedRate, "rate: parse %q", token)
	}

	points, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero, eris.Wrapf(ErrMalformedRate, "rate: parse %q", token)
	}
	if m[2] != "" {
		points = points.Add(glyphs[m[2]])
	}
	return points.Div(hundred), nil
}

// Format renders a fraction back into the printed convention, e.g. 0.045 -> "4½".
// Fractions whose remainder is not one of the glyph values cannot be rendered.
func Format(r decimal.Decimal) (string, error) {
	if r.IsNegative() {
		return "", eris.Wrapf(ErrMalformedRate, "rate: format negative %s", r)
	}
	points := r.Mul(hundred)
	whole := points.Truncate(0)
	rem := points.Sub(whole)

	out := whole.String()
	if rem.IsZero() {
		return out, nil
	}
	for glyph, v := range glyphs {
		if v.Equal(rem) {
			return out + glyph, nil
		}
	}
	return "", eris.Wrapf(ErrMalformedRate, "rate: no glyph for %s", r)
}
