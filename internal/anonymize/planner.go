package anonymize

import (
	"fmt"
	"sort"

	"cvranon/internal/logging"

	"go.uber.org/zap"
)

// planner moves rare ballots into aggregates and backfills them from the
// common-style pool.
type planner struct {
	arena     *arena
	pool      *pool
	threshold int
	aggs      []*Aggregate
}

func newPlanner(a *arena, common []*Bucket, threshold int) *planner {
	return &planner{
		arena:     a,
		pool:      newPool(a, common, threshold),
		threshold: threshold,
	}
}

func (p *planner) newAggregate() *Aggregate {
	agg := newAggregate(len(p.aggs)+1, p.arena.layout)
	p.aggs = append(p.aggs, agg)
	return agg
}

// drain moves every remaining member of a rare bucket into agg.
func (p *planner) drain(b *Bucket, agg *Aggregate) {
	for _, i := range b.Members() {
		b.remove(i)
		agg.add(p.arena.get(i), b)
	}
}

// seedSingle unions all rare ballots into one aggregate.
func (p *planner) seedSingle(rare []*Bucket) {
	if len(rare) == 0 {
		return
	}
	agg := p.newAggregate()
	for _, b := range rare {
		p.drain(b, agg)
	}
}

// seedSimilarity grows groups of rare buckets greedily. Each group starts
// from the largest remaining bucket and adds the bucket most similar to the
// group's contest union until it reaches the threshold. A group left short
// joins its most similar complete group; when no group completes, every rare
// ballot goes into a single aggregate instead.
func (p *planner) seedSimilarity(rare []*Bucket) {
	if len(rare) == 0 {
		return
	}
	n := len(p.arena.layout.Contests)

	type group struct {
		buckets []*Bucket
		sig     Signature
		count   int
	}
	var done []*group
	var short *group

	left := append([]*Bucket(nil), rare...)
	takeBest := func(pick func(a, b *Bucket) bool) *Bucket {
		best := 0
		for i := 1; i < len(left); i++ {
			if pick(left[i], left[best]) {
				best = i
			}
		}
		b := left[best]
		left = append(left[:best], left[best+1:]...)
		return b
	}
	larger := func(a, b *Bucket) bool {
		if a.Count() != b.Count() {
			return a.Count() > b.Count()
		}
		return a.Ordinal < b.Ordinal
	}

	for len(left) > 0 {
		g := &group{sig: emptySignature(n)}
		for g.count < p.threshold && len(left) > 0 {
			var b *Bucket
			if len(g.buckets) == 0 {
				b = takeBest(larger)
			} else {
				target := g.sig
				b = takeBest(func(a, c *Bucket) bool {
					if cmp := jaccard(a.Sig, target).compare(jaccard(c.Sig, target)); cmp != 0 {
						return cmp > 0
					}
					return larger(a, c)
				})
			}
			g.buckets = append(g.buckets, b)
			g.sig = g.sig.Union(b.Sig)
			g.count += b.Count()
		}
		if g.count >= p.threshold {
			done = append(done, g)
		} else {
			short = g
		}
	}

	log := logging.Get(logging.CategoryPlanner)
	if len(done) == 0 {
		log.Debug("no similarity group reached threshold, using a single aggregate")
		p.seedSingle(rare)
		return
	}
	if short != nil {
		best := 0
		for i := 1; i < len(done); i++ {
			if jaccard(short.sig, done[i].sig).compare(jaccard(short.sig, done[best].sig)) > 0 {
				best = i
			}
		}
		done[best].buckets = append(done[best].buckets, short.buckets...)
	}

	for _, g := range done {
		sort.Slice(g.buckets, func(i, j int) bool { return g.buckets[i].Ordinal < g.buckets[j].Ordinal })
		agg := p.newAggregate()
		for _, b := range g.buckets {
			p.drain(b, agg)
		}
	}
}

// sharing selects donors with at least one contest in common with target.
// An aggregate with no contests at all accepts any donor.
func sharing(target Signature) func(*Bucket) (int, bool) {
	return func(b *Bucket) (int, bool) {
		if target.Contests() > 0 && jaccard(b.Sig, target).inter == 0 {
			return 0, false
		}
		return b.first()
	}
}

// fillTotal borrows until every aggregate holds at least threshold ballots.
func (p *planner) fillTotal() error {
	log := logging.Get(logging.CategoryPlanner)
	for _, agg := range p.aggs {
		for agg.Count() < p.threshold {
			d, ok := p.pool.best(agg.Signature(), sharing(agg.Signature()))
			if !ok {
				return fmt.Errorf("%w: %s holds %d ballots but the threshold is %d, and no common style sharing a contest remains (%d common ballots left)",
					ErrInsufficientData, agg.ID, agg.Count(), p.threshold, p.pool.size())
			}
			p.pool.lend(d, agg, "total")
		}
		log.Debug("aggregate reached threshold",
			zap.String("aggregate", agg.ID),
			zap.Int("ballots", agg.Count()))
	}
	return nil
}

// fillCoverage borrows for every contest present in agg but carried by fewer
// than threshold of its ballots. Returns the number of ballots moved.
func (p *planner) fillCoverage(agg *Aggregate) int {
	moved := 0
	for c := range p.arena.layout.Contests {
		for n := agg.ContestCount(c); n > 0 && n < p.threshold; n = agg.ContestCount(c) {
			d, ok := p.pool.best(agg.Signature(), carrying(c))
			if !ok {
				break
			}
			moved += p.pool.lend(d, agg, "coverage")
		}
	}
	return moved
}

// underCovered lists the warnings for contests still short after planning.
func (p *planner) underCovered(agg *Aggregate) []Warning {
	var out []Warning
	for c, ct := range p.arena.layout.Contests {
		n := agg.ContestCount(c)
		if n == 0 || n >= p.threshold {
			continue
		}
		out = append(out, Warning{
			Kind: WarnUnderCovered,
			Message: fmt.Sprintf("%s: contest %q appears on %d ballots, below the threshold of %d, and no donor carries it",
				agg.ID, ct.Name, n, p.threshold),
			Aggregate: agg.ID,
			Contest:   ct.Name,
		})
	}
	return out
}
