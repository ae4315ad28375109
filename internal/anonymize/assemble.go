package anonymize

import (
	"sort"
	"strconv"
	"strings"

	"cvranon/internal/cvr"
)

// AggregatedBallotType is written into the ballot-type field of aggregate rows.
const AggregatedBallotType = "AGGREGATED"

// assemble renders the output table: remaining common ballots with their
// counting-group and precinct-portion fields blanked, ordered by ballot id,
// followed by one summed row per aggregate in creation order.
func assemble(in *cvr.Table, a *arena, common []int, aggs []*Aggregate) *cvr.Table {
	out := &cvr.Table{
		Version:        append([]string(nil), in.Version...),
		Contests:       append([]string(nil), in.Contests...),
		Choices:        append([]string(nil), in.Choices...),
		Headers:        append([]string(nil), in.Headers...),
		Rows:           make([][]string, 0, len(common)+len(aggs)),
		LineTerminator: in.LineTerminator,
	}

	order := append([]int(nil), common...)
	sort.Slice(order, func(i, j int) bool {
		return ballotLess(a.get(order[i]), a.get(order[j]))
	})
	for _, i := range order {
		out.Rows = append(out.Rows, redactCommon(a.get(i).Row, a.layout.HeaderLength))
	}
	for _, agg := range aggs {
		out.Rows = append(out.Rows, aggregateRow(agg, a.layout))
	}
	return out
}

func redactCommon(row []string, headerLength int) []string {
	out := append([]string(nil), row...)
	for _, f := range []int{cvr.FieldCountingGroup, cvr.FieldPrecinctPortion} {
		if f < headerLength {
			out[f] = ""
		}
	}
	return out
}

func aggregateRow(agg *Aggregate, layout *cvr.Layout) []string {
	row := make([]string, layout.Width)
	row[cvr.FieldBallotID] = agg.ID
	if cvr.FieldBallotType < layout.HeaderLength {
		row[cvr.FieldBallotType] = AggregatedBallotType
	}
	for off, v := range agg.totals {
		if agg.ContestCount(layout.ContestOfColumn(off)) == 0 {
			continue
		}
		row[layout.HeaderLength+off] = strconv.FormatInt(v, 10)
	}
	return row
}

// ballotLess orders numeric ids numerically, then non-numeric ids
// lexicographically, then by input position.
func ballotLess(x, y *Ballot) bool {
	xs, ys := x.ID(), y.ID()
	xn, xerr := strconv.ParseInt(xs, 10, 64)
	yn, yerr := strconv.ParseInt(ys, 10, 64)
	switch {
	case xerr == nil && yerr == nil:
		if xn != yn {
			return xn < yn
		}
	case xerr == nil:
		return true
	case yerr == nil:
		return false
	default:
		if c := strings.Compare(xs, ys); c != 0 {
			return c < 0
		}
	}
	return x.Index < y.Index
}
