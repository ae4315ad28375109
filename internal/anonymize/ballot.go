package anonymize

import (
	"fmt"
	"strings"

	"cvranon/internal/cvr"
)

// Ballot is one input row with its parsed votes. Ballots live in an arena
// indexed by input position; buckets and aggregates refer to them by index.
type Ballot struct {
	Index    int
	Row      []string
	Votes    []int64 // per vote column offset
	Declared string
	Sig      Signature
}

// ID returns the ballot id field.
func (b *Ballot) ID() string { return strings.TrimSpace(b.Row[cvr.FieldBallotID]) }

type arena struct {
	layout  *cvr.Layout
	ballots []Ballot
}

func newArena(t *cvr.Table, layout *cvr.Layout, opts Options) (*arena, error) {
	a := &arena{
		layout:  layout,
		ballots: make([]Ballot, len(t.Rows)),
	}
	for i, row := range t.Rows {
		sig, err := ComputeSignature(layout, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		votes := make([]int64, layout.VoteColumns())
		for off := range votes {
			v, _, err := cvr.ParseVote(row[layout.HeaderLength+off])
			if err != nil {
				return nil, fmt.Errorf("%w: row %d, column %q: %v",
					ErrInvalidVote, i+1, layout.ColumnLabel(off), err)
			}
			votes[off] = v
		}
		a.ballots[i] = Ballot{
			Index:    i,
			Row:      row,
			Votes:    votes,
			Declared: declaredStyle(row, opts),
			Sig:      sig,
		}
	}
	return a, nil
}

func (a *arena) get(i int) *Ballot { return &a.ballots[i] }

func (a *arena) len() int { return len(a.ballots) }

// tally sums the parsed votes of every ballot per vote column offset.
func (a *arena) tally() []int64 {
	totals := make([]int64, a.layout.VoteColumns())
	for i := range a.ballots {
		for off, v := range a.ballots[i].Votes {
			totals[off] += v
		}
	}
	return totals
}

// declaredStyle extracts the dataset's own style label, optionally cut to a
// prefix (some exports append the portion id to the style code).
func declaredStyle(row []string, opts Options) string {
	v := strings.TrimSpace(row[opts.StyleColumn])
	if opts.StylePrefixLength > 0 {
		r := []rune(v)
		if len(r) > opts.StylePrefixLength {
			v = string(r[:opts.StylePrefixLength])
		}
	}
	return v
}

// hasMinorityVote reports whether the ballot marks any choice of contest c
// other than the dominant column.
func (b *Ballot) hasMinorityVote(c cvr.Contest, headerLength, dominant int) bool {
	for col := c.Start; col < c.End; col++ {
		off := col - headerLength
		if off != dominant && b.Votes[off] > 0 {
			return true
		}
	}
	return false
}
