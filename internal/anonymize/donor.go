package anonymize

import (
	"sort"

	"cvranon/internal/logging"

	"go.uber.org/zap"
)

// donor is a common bucket able to lend a specific ballot.
type donor struct {
	bucket *Bucket
	ballot int
	sim    similarity
}

// pool holds the common-style buckets ballots may be borrowed from.
type pool struct {
	arena     *arena
	buckets   []*Bucket
	threshold int

	borrowed int
	absorbed []*Bucket
}

func newPool(a *arena, common []*Bucket, threshold int) *pool {
	return &pool{arena: a, buckets: common, threshold: threshold}
}

// rank lists the buckets that can lend a ballot to an aggregate whose
// signature union is target. pick selects the ballot a bucket would lend.
// Order: Jaccard similarity to target (desc), remaining bucket size (desc),
// ordinal (asc).
func (p *pool) rank(target Signature, pick func(*Bucket) (int, bool)) []donor {
	var out []donor
	for _, b := range p.buckets {
		if b.Count() == 0 {
			continue
		}
		idx, ok := pick(b)
		if !ok {
			continue
		}
		out = append(out, donor{bucket: b, ballot: idx, sim: jaccard(b.Sig, target)})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].sim.compare(out[j].sim); c != 0 {
			return c > 0
		}
		if ci, cj := out[i].bucket.Count(), out[j].bucket.Count(); ci != cj {
			return ci > cj
		}
		return out[i].bucket.Ordinal < out[j].bucket.Ordinal
	})
	return out
}

// best returns the top-ranked donor, if any.
func (p *pool) best(target Signature, pick func(*Bucket) (int, bool)) (donor, bool) {
	ranked := p.rank(target, pick)
	if len(ranked) == 0 {
		return donor{}, false
	}
	return ranked[0], true
}

// lend moves the donor's ballot into agg. A bucket is never left holding
// fewer than threshold ballots: when lending one would do that, the whole
// bucket moves. Returns the number of ballots moved.
func (p *pool) lend(d donor, agg *Aggregate, reason string) int {
	b := d.bucket
	log := logging.Get(logging.CategoryPlanner)

	if b.Count()-1 >= p.threshold {
		b.remove(d.ballot)
		agg.add(p.arena.get(d.ballot), b)
		p.borrowed++
		log.Debug("borrowed ballot",
			zap.String("aggregate", agg.ID),
			zap.String("style", b.Label),
			zap.String("ballot", p.arena.get(d.ballot).ID()),
			zap.String("reason", reason))
		return 1
	}

	members := b.Members()
	for _, i := range members {
		b.remove(i)
		agg.add(p.arena.get(i), b)
	}
	p.borrowed += len(members)
	p.absorbed = append(p.absorbed, b)
	log.Debug("absorbed style",
		zap.String("aggregate", agg.ID),
		zap.String("style", b.Label),
		zap.Int("ballots", len(members)),
		zap.String("reason", reason))
	return len(members)
}

// remaining returns every ballot still held by a common bucket.
func (p *pool) remaining() []int {
	var out []int
	for _, b := range p.buckets {
		out = append(out, b.Members()...)
	}
	return out
}

// size returns the number of ballots still available to lend.
func (p *pool) size() int {
	n := 0
	for _, b := range p.buckets {
		n += b.Count()
	}
	return n
}

func carrying(contest int) func(*Bucket) (int, bool) {
	return func(b *Bucket) (int, bool) {
		if !b.Sig.Has(contest) {
			return 0, false
		}
		return b.first()
	}
}
