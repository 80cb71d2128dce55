// Package schedule holds the in-memory rate schedule and answers tax lookups against it.
package schedule

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/sells-group/salestax/internal/model"
)

// Schedule is an immutable, indexed snapshot of schedule records.
// It is safe for concurrent use.
type Schedule struct {
	policy   model.Policy
	records  []model.ScheduleRecord
	index    map[string]int
	loadedAt time.Time
}

// New indexes records by case-folded (jurisdiction, sub-jurisdiction). When
// several records share a key the first one wins.
func New(policy model.Policy, records []model.ScheduleRecord) *Schedule {
	s := &Schedule{
		policy:   policy,
		records:  append([]model.ScheduleRecord(nil), records...),
		index:    make(map[string]int, len(records)),
		loadedAt: time.Now().UTC(),
	}
	for i, r := range s.records {
		k := indexKey(r.Jurisdiction, r.SubJurisdiction)
		if _, ok := s.index[k]; !ok {
			s.index[k] = i
		}
	}
	return s
}

// Policy returns the policy the schedule was built under.
func (s *Schedule) Policy() model.Policy { return s.policy }

// Len returns the number of records.
func (s *Schedule) Len() int { return len(s.records) }

// LoadedAt returns when the snapshot was built.
func (s *Schedule) LoadedAt() time.Time { return s.loadedAt }

// Records returns a copy of the records in load order.
func (s *Schedule) Records() []model.ScheduleRecord {
	return append([]model.ScheduleRecord(nil), s.records...)
}

// Find returns the record for an exact (jurisdiction, sub-jurisdiction) pair.
// An empty sub-jurisdiction matches the jurisdiction-level record.
func (s *Schedule) Find(jurisdiction, sub string) (model.ScheduleRecord, bool) {
	i, ok := s.index[indexKey(jurisdiction, sub)]
	if !ok {
		return model.ScheduleRecord{}, false
	}
	return s.records[i], true
}

// Fallback returns the record used when no local jurisdiction applies.
func (s *Schedule) Fallback() (model.ScheduleRecord, bool) {
	return s.Find(s.policy.NoLocalName, model.NoSubJurisdiction)
}

func indexKey(jurisdiction, sub string) string {
	sub = strings.TrimSpace(sub)
	if sub == "" {
		sub = model.NoSubJurisdiction
	}
	return fold(jurisdiction) + "\x1f" + fold(sub)
}

// fold returns the caseless form of s. Casers are stateful so one is built per call.
func fold(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}
