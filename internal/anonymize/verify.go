package anonymize

import (
	"fmt"

	"cvranon/internal/cvr"
	"cvranon/internal/logging"

	"go.uber.org/zap"
)

// verifyTallies recomputes every column total of the assembled rows and
// compares it with the input totals.
func verifyTallies(layout *cvr.Layout, want []int64, out *cvr.Table) error {
	got, err := cvr.Tally(layout, out.Rows)
	if err != nil {
		return fmt.Errorf("%w: assembled output does not parse: %v", ErrTallyMismatch, err)
	}
	for off := range want {
		if got[off] != want[off] {
			return fmt.Errorf("%w: column %q totals %d in output, %d in input",
				ErrTallyMismatch, layout.ColumnLabel(off), got[off], want[off])
		}
	}
	logging.Get(logging.CategoryVerify).Debug("tallies match",
		zap.Int("columns", len(want)),
		zap.Int("rows", len(out.Rows)))
	return nil
}

// verifyConservation checks that each input ballot is published exactly
// once, either as its own row or inside exactly one aggregate.
func verifyConservation(a *arena, common []int, aggs []*Aggregate) error {
	seen := make([]int, a.len())
	where := make([]string, a.len())
	mark := func(i int, home string) error {
		seen[i]++
		if seen[i] > 1 {
			return fmt.Errorf("%w: ballot %q is published in both %s and %s",
				ErrBallotConservation, a.get(i).ID(), where[i], home)
		}
		where[i] = home
		return nil
	}
	for _, i := range common {
		if err := mark(i, "its own row"); err != nil {
			return err
		}
	}
	for _, agg := range aggs {
		for _, i := range agg.members {
			if err := mark(i, agg.ID); err != nil {
				return err
			}
		}
	}
	for i, n := range seen {
		if n == 0 {
			return fmt.Errorf("%w: ballot %q (row %d) is missing from the output",
				ErrBallotConservation, a.get(i).ID(), i+1)
		}
	}
	return nil
}
