package anonymize

import (
	"fmt"

	"cvranon/internal/cvr"
)

// AggregatePrefix starts every synthetic aggregate ballot id.
const AggregatePrefix = "AGGREGATED-"

// Aggregate accumulates ballots that are published as a single summed row.
// Members are only ever added.
type Aggregate struct {
	ID     string
	Number int

	layout        *cvr.Layout
	members       []int
	rare          int
	totals        []int64 // per vote column offset
	contestCounts []int   // ballots carrying each contest
	sig           Signature
	sources       map[*Bucket]bool
	sourceOrder   []*Bucket
}

func newAggregate(number int, layout *cvr.Layout) *Aggregate {
	return &Aggregate{
		ID:            fmt.Sprintf("%s%d", AggregatePrefix, number),
		Number:        number,
		layout:        layout,
		totals:        make([]int64, layout.VoteColumns()),
		contestCounts: make([]int, len(layout.Contests)),
		sig:           emptySignature(len(layout.Contests)),
		sources:       make(map[*Bucket]bool),
	}
}

func (a *Aggregate) add(b *Ballot, from *Bucket) {
	a.members = append(a.members, b.Index)
	if from.Rare {
		a.rare++
	}
	for off, v := range b.Votes {
		a.totals[off] += v
	}
	for c := range a.contestCounts {
		if b.Sig.Has(c) {
			a.contestCounts[c]++
		}
	}
	a.sig = a.sig.Union(b.Sig)
	if !a.sources[from] {
		a.sources[from] = true
		a.sourceOrder = append(a.sourceOrder, from)
	}
}

// Count returns the number of member ballots.
func (a *Aggregate) Count() int { return len(a.members) }

// ContestCount returns how many members carry contest c.
func (a *Aggregate) ContestCount(c int) int { return a.contestCounts[c] }

// Signature returns the union of member signatures.
func (a *Aggregate) Signature() Signature { return a.sig }

// contestVotes returns the votes cast in contest c, the dominant column
// offset and its vote count.
func (a *Aggregate) contestVotes(c int) (total int64, dominant int, top int64) {
	ct := a.layout.Contests[c]
	dominant = -1
	for col := ct.Start; col < ct.End; col++ {
		off := col - a.layout.HeaderLength
		v := a.totals[off]
		total += v
		if dominant < 0 || v > top {
			dominant, top = off, v
		}
	}
	return total, dominant, top
}

// nearUnanimous reports whether one choice of contest c holds all but at
// most two of the aggregate's votes in it. Contests with a single choice or
// no votes are never flagged, and the dominant choice must hold a strict
// majority so that spread-out tiny tallies like 1/1/1 are not flagged.
func (a *Aggregate) nearUnanimous(c int) (dominant int, flagged bool) {
	if a.layout.Contests[c].Width() < 2 || a.contestCounts[c] == 0 {
		return -1, false
	}
	total, dominant, top := a.contestVotes(c)
	if total == 0 {
		return -1, false
	}
	rest := total - top
	return dominant, rest <= 2 && top > rest
}

func (a *Aggregate) info() AggregateInfo {
	styles := make([]string, len(a.sourceOrder))
	for i, b := range a.sourceOrder {
		styles[i] = b.Label
	}
	return AggregateInfo{
		ID:          a.ID,
		Ballots:     a.Count(),
		RareBallots: a.rare,
		Borrowed:    a.Count() - a.rare,
		Styles:      styles,
	}
}
