package anonymize

import (
	"fmt"
	"strings"

	"cvranon/internal/cvr"

	"github.com/bits-and-blooms/bitset"
)

// Signature is the contest-presence bitmap of a ballot: bit i is set iff
// contest i appears on the ballot. Signatures are never mutated after
// construction; set operations return new values.
type Signature struct {
	bits *bitset.BitSet
	n    uint
}

// ComputeSignature derives the signature of a row. A contest is present when
// any of its choice cells is non-empty.
func ComputeSignature(layout *cvr.Layout, row []string) (Signature, error) {
	if err := layout.CheckRow(row); err != nil {
		return Signature{}, err
	}
	n := uint(len(layout.Contests))
	bits := bitset.New(n)
	for i, c := range layout.Contests {
		for col := c.Start; col < c.End; col++ {
			if strings.TrimSpace(row[col]) != "" {
				bits.Set(uint(i))
				break
			}
		}
	}
	return Signature{bits: bits, n: n}, nil
}

func emptySignature(n int) Signature {
	return Signature{bits: bitset.New(uint(n)), n: uint(n)}
}

// Has reports whether contest i is present.
func (s Signature) Has(i int) bool { return s.bits.Test(uint(i)) }

// Contests returns the number of contests present.
func (s Signature) Contests() int { return int(s.bits.Count()) }

// Equal reports whether both signatures carry the same contest set.
func (s Signature) Equal(o Signature) bool { return s.n == o.n && s.bits.Equal(o.bits) }

// Union returns the contests present in either signature.
func (s Signature) Union(o Signature) Signature {
	return Signature{bits: s.bits.Union(o.bits), n: s.n}
}

// Key renders the bitmap as a string of 0s and 1s, one per contest.
func (s Signature) Key() string {
	var b strings.Builder
	b.Grow(int(s.n))
	for i := uint(0); i < s.n; i++ {
		if s.bits.Test(i) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// similarity is a Jaccard index kept as an exact ratio so comparisons are
// total and platform independent.
type similarity struct {
	inter, union uint64
}

func jaccard(a, b Signature) similarity {
	return similarity{
		inter: uint64(a.bits.IntersectionCardinality(b.bits)),
		union: uint64(a.bits.UnionCardinality(b.bits)),
	}
}

// compare returns -1, 0 or 1 as s is less than, equal to or greater than o.
// Two empty signatures compare as similarity zero.
func (s similarity) compare(o similarity) int {
	l := s.inter * max(o.union, 1)
	r := o.inter * max(s.union, 1)
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}

// StyleLabel synthesizes the descriptive label <contests><R|S><sequence>.
func StyleLabel(contests int, rare bool, seq int) string {
	kind := "S"
	if rare {
		kind = "R"
	}
	return fmt.Sprintf("%d%s%d", contests, kind, seq)
}
