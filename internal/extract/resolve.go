package extract

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/salestax/internal/model"
	"github.com/sells-group/salestax/internal/rate"
)

var (
	// ErrMissingCanonicalEntry means the grid has no usable umbrella row.
	ErrMissingCanonicalEntry = errors.New("missing canonical entry")
	// ErrCyclicReference means the umbrella entry refers to itself.
	ErrCyclicReference = errors.New("cyclic cross-reference")
)

// Canonical is the umbrella jurisdiction's rate and reporting code.
type Canonical struct {
	Rate decimal.Decimal
	Code string
}

// LocateCanonical scans the grid for the first umbrella header with a parseable rate.
// It runs before assembly so cross-references can be resolved in a single pass.
func LocateCanonical(grid model.Grid, policy model.Policy) (Canonical, error) {
	for i, row := range grid {
		for g, grp := range row.Groups {
			if !grp.Location.Present {
				continue
			}
			lines := splitLines(grp.Location.Text)
			if len(lines) == 0 {
				continue
			}
			_, header := StripFootnote(lines[0], policy.FootnoteMarker)
			if !strings.EqualFold(header, policy.Umbrella) {
				continue
			}
			r, err := rate.Parse(grp.Rate.Text)
			if err != nil {
				zap.L().Warn("extract: umbrella row has unusable rate",
					zap.Int("row", i),
					zap.Int("group", g),
					zap.String("rate", grp.Rate.Text),
				)
				continue
			}
			return Canonical{Rate: r, Code: grp.Code.Trimmed()}, nil
		}
	}
	return Canonical{}, eris.Wrapf(ErrMissingCanonicalEntry, "extract: no %q row", policy.Umbrella)
}

// Resolver fills cross-referencing entries from the canonical umbrella entry.
type Resolver struct {
	canonical Canonical
	umbrella  string
	ref       crossRef
}

// NewResolver returns a Resolver for policy's umbrella jurisdiction.
func NewResolver(policy model.Policy, canonical Canonical) *Resolver {
	return &Resolver{
		canonical: canonical,
		umbrella:  policy.Umbrella,
		ref:       newCrossRef(policy.Umbrella),
	}
}

// Detect reports whether header is a cross-reference and returns the referring name.
func (r *Resolver) Detect(header string) (bool, string) {
	return r.ref.Match(header)
}

// Resolve substitutes the canonical composite and code into a cross-referencing entry.
func (r *Resolver) Resolve(e *Entry) error {
	if !e.CrossRef {
		return nil
	}
	if strings.EqualFold(e.Name, r.umbrella) {
		return eris.Wrapf(ErrCyclicReference, "extract: %q refers to itself", e.Header)
	}
	e.Composite = valid(r.canonical.Rate)
	e.Code = r.canonical.Code
	return nil
}
