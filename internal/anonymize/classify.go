package anonymize

import (
	"fmt"

	"cvranon/internal/logging"

	"github.com/google/btree"
	"go.uber.org/zap"
)

const bucketDegree = 16

// Bucket is one style: every ballot sharing a declared style and signature.
// Members are held as an ordered set of arena indexes so the lowest input
// position is always lent first.
type Bucket struct {
	Ordinal  int // 1-based, order of first appearance in the input
	Declared string
	Sig      Signature
	Label    string
	Rare     bool
	Initial  int

	members *btree.BTreeG[int]
}

// Count returns the number of ballots still in the bucket.
func (b *Bucket) Count() int { return b.members.Len() }

// Members returns the remaining member indexes in ascending order.
func (b *Bucket) Members() []int {
	out := make([]int, 0, b.members.Len())
	b.members.Ascend(func(i int) bool {
		out = append(out, i)
		return true
	})
	return out
}

func (b *Bucket) first() (int, bool) { return b.members.Min() }

func (b *Bucket) remove(i int) {
	if _, ok := b.members.Delete(i); !ok {
		panic(fmt.Sprintf("ballot %d is not a member of style %s", i, b.Label))
	}
}

// firstMatching returns the lowest member satisfying pred.
func (b *Bucket) firstMatching(pred func(int) bool) (int, bool) {
	found, ok := 0, false
	b.members.Ascend(func(i int) bool {
		if pred(i) {
			found, ok = i, true
			return false
		}
		return true
	})
	return found, ok
}

type bucketKey struct {
	declared string
	sig      string
}

// classify groups the arena into style buckets and marks those holding fewer
// than threshold ballots as rare. Buckets are returned in ordinal order.
func classify(a *arena, threshold int) ([]*Bucket, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: threshold must be positive, got %d", ErrInvalidConfig, threshold)
	}

	index := make(map[bucketKey]*Bucket)
	var buckets []*Bucket
	for i := 0; i < a.len(); i++ {
		b := a.get(i)
		key := bucketKey{declared: b.Declared, sig: b.Sig.Key()}
		bk, ok := index[key]
		if !ok {
			bk = &Bucket{
				Ordinal:  len(buckets) + 1,
				Declared: b.Declared,
				Sig:      b.Sig,
				members:  btree.NewOrderedG[int](bucketDegree),
			}
			index[key] = bk
			buckets = append(buckets, bk)
		}
		bk.members.ReplaceOrInsert(i)
	}

	log := logging.Get(logging.CategoryClassify)
	for _, bk := range buckets {
		bk.Initial = bk.Count()
		bk.Rare = bk.Initial < threshold
		bk.Label = StyleLabel(bk.Sig.Contests(), bk.Rare, bk.Ordinal)
		log.Debug("classified style",
			zap.String("label", bk.Label),
			zap.String("declared", bk.Declared),
			zap.String("signature", bk.Sig.Key()),
			zap.Int("ballots", bk.Initial),
			zap.Bool("rare", bk.Rare))
	}
	return buckets, nil
}

func splitRarity(buckets []*Bucket) (rare, common []*Bucket) {
	for _, b := range buckets {
		if b.Rare {
			rare = append(rare, b)
		} else {
			common = append(common, b)
		}
	}
	return rare, common
}
