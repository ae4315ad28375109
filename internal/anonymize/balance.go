package anonymize

import (
	"fmt"

	"cvranon/internal/logging"

	"go.uber.org/zap"
)

// rebalance breaks near-unanimous contests in agg by borrowing ballots that
// vote for a non-dominant choice. Returns the number of ballots moved.
func (p *planner) rebalance(agg *Aggregate) int {
	layout := p.arena.layout
	log := logging.Get(logging.CategoryBalance)
	moved := 0
	for c, ct := range layout.Contests {
		for {
			dominant, flagged := agg.nearUnanimous(c)
			if !flagged {
				break
			}
			pick := func(b *Bucket) (int, bool) {
				if !b.Sig.Has(c) {
					return 0, false
				}
				return b.firstMatching(func(i int) bool {
					return p.arena.get(i).hasMinorityVote(ct, layout.HeaderLength, dominant)
				})
			}
			d, ok := p.pool.best(agg.Signature(), pick)
			if !ok {
				break
			}
			log.Debug("breaking near-unanimous contest",
				zap.String("aggregate", agg.ID),
				zap.String("contest", ct.Name),
				zap.String("dominant", layout.ColumnLabel(dominant)),
				zap.String("donor", d.bucket.Label))
			moved += p.pool.lend(d, agg, "balance")
		}
	}
	return moved
}

// settle runs coverage and balance over every aggregate until a pass moves
// nothing. The pass count is bounded by the common ballot count plus one,
// since every productive pass removes at least one ballot from the pool.
func (p *planner) settle() int {
	limit := p.pool.size() + 1
	timer := logging.StartTimer(logging.CategoryPlanner, "settle")
	defer timer.Stop()

	passes := 0
	for passes < limit {
		passes++
		moved := 0
		for _, agg := range p.aggs {
			moved += p.fillCoverage(agg)
			moved += p.rebalance(agg)
		}
		if moved == 0 {
			break
		}
	}
	return passes
}

// unbalanced lists the warnings for contests still near-unanimous.
func (p *planner) unbalanced(agg *Aggregate) []Warning {
	var out []Warning
	for c, ct := range p.arena.layout.Contests {
		dominant, flagged := agg.nearUnanimous(c)
		if !flagged {
			continue
		}
		total, _, top := agg.contestVotes(c)
		out = append(out, Warning{
			Kind: WarnUnbalanced,
			Message: fmt.Sprintf("%s: contest %q has %d of %d votes for %q and no donor ballot votes otherwise",
				agg.ID, ct.Name, top, total, ct.Choices[p.arena.layout.HeaderLength+dominant-ct.Start]),
			Aggregate: agg.ID,
			Contest:   ct.Name,
		})
	}
	return out
}
