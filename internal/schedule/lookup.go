package schedule

import (
	"errors"
	"strings"

	"github.com/sells-group/salestax/internal/model"
)

// ErrNoApplicableRate is returned when every lookup tier is exhausted.
var ErrNoApplicableRate = errors.New("schedule: no applicable rate")

// Tier identifies which step of the fallback chain produced a match.
type Tier int

const (
	// TierExact matched (jurisdiction, sub-jurisdiction).
	TierExact Tier = iota + 1
	// TierJurisdiction matched the jurisdiction-level record.
	TierJurisdiction
	// TierFallback matched the no-local-rate record.
	TierFallback
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierJurisdiction:
		return "jurisdiction"
	case TierFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Match is a successful lookup.
type Match struct {
	Record model.ScheduleRecord
	Tier   Tier
}

// Engine answers lookups against one schedule snapshot. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	schedule *Schedule
	norm     Normalizer
}

// NewEngine returns an engine over s. A nil aliases table uses the defaults.
func NewEngine(s *Schedule, aliases *Aliases) *Engine {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Engine{
		schedule: s,
		norm:     Normalizer{Aliases: aliases, NoLocal: s.Policy().NoLocalName},
	}
}

// Schedule returns the snapshot the engine reads.
func (e *Engine) Schedule() *Schedule { return e.schedule }

// Lookup resolves a place to a schedule record: exact match first, then the
// jurisdiction-level record, then the no-local-rate record.
func (e *Engine) Lookup(jurisdiction, sub string) (Match, error) {
	j := e.norm.Jurisdiction(jurisdiction)
	s := e.norm.SubJurisdiction(sub)

	if s != model.NoSubJurisdiction {
		if rec, ok := e.schedule.Find(j, s); ok {
			return Match{Record: rec, Tier: TierExact}, nil
		}
	}
	if rec, ok := e.schedule.Find(j, model.NoSubJurisdiction); ok {
		tier := TierJurisdiction
		if strings.EqualFold(j, e.norm.NoLocal) {
			tier = TierFallback
		}
		return Match{Record: rec, Tier: tier}, nil
	}
	if rec, ok := e.schedule.Fallback(); ok {
		return Match{Record: rec, Tier: TierFallback}, nil
	}
	return Match{}, ErrNoApplicableRate
}
