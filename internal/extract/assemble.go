package extract

import (
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/salestax/internal/model"
	"github.com/sells-group/salestax/internal/rate"
)

// groupState is the per-column-group cursor: the entry currently accepting
// sub-jurisdictions and the names still waiting for a rate row.
type groupState struct {
	open    *Entry
	pending []string
}

// reopen closes the current entry and returns how many pending names were discarded.
// Leftover names never carry over to the new entry.
func (s *groupState) reopen(e *Entry, pending []string) int {
	starved := len(s.pending)
	s.open = e
	s.pending = pending
	return starved
}

// next dequeues the oldest pending name.
func (s *groupState) next() (string, bool) {
	if s.open == nil || len(s.pending) == 0 {
		return "", false
	}
	name := s.pending[0]
	s.pending = s.pending[1:]
	return name, true
}

// Assembler walks grid rows and builds hierarchical entries, one column group at a time.
type Assembler struct {
	policy   model.Policy
	resolver *Resolver
	groups   [model.ColumnGroups]groupState
	entries  []*Entry
	stats    Stats
}

// NewAssembler returns an Assembler that resolves cross-references against canonical.
func NewAssembler(policy model.Policy, canonical Canonical) *Assembler {
	return &Assembler{
		policy:   policy,
		resolver: NewResolver(policy, canonical),
	}
}

// Feed consumes one grid row, left to right across column groups.
func (a *Assembler) Feed(row model.Row) error {
	a.stats.Rows++
	for g, grp := range row.Groups {
		if err := a.feedGroup(g, grp); err != nil {
			return err
		}
	}
	return nil
}

// Finish counts names still pending at end of input and returns the entries in order.
func (a *Assembler) Finish() []*Entry {
	for g := range a.groups {
		a.stats.StarvedNames += a.groups[g].reopen(nil, nil)
	}
	return a.entries
}

// Stats returns counters accumulated so far.
func (a *Assembler) Stats() Stats {
	return a.stats
}

func (a *Assembler) feedGroup(g int, grp model.Group) error {
	if grp.Location.Present {
		return a.openHeader(g, grp)
	}
	if !grp.Rate.Present && !grp.Code.Present {
		return nil
	}

	st := &a.groups[g]
	name, ok := st.next()
	if !ok {
		return nil
	}
	a.attach(st.open, name, grp)
	return nil
}

func (a *Assembler) openHeader(g int, grp model.Group) error {
	lines := splitLines(grp.Location.Text)
	if len(lines) == 0 {
		return nil
	}

	footnote, header := StripFootnote(lines[0], a.policy.FootnoteMarker)
	e := &Entry{
		Header:   lines[0],
		Name:     header,
		Group:    g,
		Footnote: footnote,
	}

	var pending []string
	if isRef, name := a.resolver.Detect(header); isRef {
		e.CrossRef = true
		e.Name = name
		if err := a.resolver.Resolve(e); err != nil {
			return err
		}
		a.stats.CrossReferences++
	} else if strings.EqualFold(header, a.policy.Umbrella) {
		e.Umbrella = true
		e.Name = a.policy.Umbrella
		e.Composite = valid(a.resolver.canonical.Rate)
		e.Code = a.resolver.canonical.Code
		if grp.Rate.Present {
			if r, ok := a.parse(grp.Rate.Text, header); ok {
				e.Composite = valid(r)
			}
		}
		if code := grp.Code.Trimmed(); code != "" {
			e.Code = code
		}
	} else {
		if grp.Rate.Present {
			if r, ok := a.parse(grp.Rate.Text, header); ok {
				e.Composite = valid(r)
			}
		}
		e.Code = grp.Code.Trimmed()
		pending = lines[1:]
	}

	// continuation lines under umbrella and cross-reference headers are dropped
	a.stats.StarvedNames += len(lines) - 1 - len(pending)
	a.stats.StarvedNames += a.groups[g].reopen(e, pending)
	a.entries = append(a.entries, e)
	a.stats.Entries++
	return nil
}

func (a *Assembler) attach(parent *Entry, raw string, grp model.Group) {
	footnote, name := StripFootnote(raw, a.policy.FootnoteMarker)
	sub := SubEntry{
		Name:     TrimSubJurisdiction(name),
		Code:     grp.Code.Trimmed(),
		Footnote: footnote || parent.Footnote,
	}
	if grp.Rate.Present {
		if r, ok := a.parse(grp.Rate.Text, name); ok {
			sub.Composite = valid(r)
		}
	} else {
		sub.Composite = parent.Composite
	}
	parent.Subs = append(parent.Subs, sub)
	a.stats.SubEntries++
}

// parse converts a rate cell, counting and logging malformed tokens instead of failing.
func (a *Assembler) parse(token, location string) (decimal.Decimal, bool) {
	v, err := rate.Parse(token)
	if err != nil {
		a.stats.MalformedCells++
		zap.L().Warn("extract: malformed rate cell",
			zap.String("location", location),
			zap.String("rate", token),
			zap.Error(err),
		)
		return decimal.Zero, false
	}
	return v, true
}
