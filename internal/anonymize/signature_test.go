package anonymize

import (
	"errors"
	"testing"

	"cvranon/internal/cvr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSignature(t *testing.T) {
	tbl := scenarioA()
	layout, err := cvr.NewLayout(tbl, 8)
	require.NoError(t, err)

	first, err := ComputeSignature(layout, tbl.Rows[0])
	require.NoError(t, err)
	again, err := ComputeSignature(layout, tbl.Rows[0])
	require.NoError(t, err)

	assert.True(t, first.Equal(again))
	assert.Equal(t, "10", first.Key())
	assert.Equal(t, 1, first.Contests())
	assert.True(t, first.Has(0))
	assert.False(t, first.Has(1))

	both, err := ComputeSignature(layout, tbl.Rows[1])
	require.NoError(t, err)
	assert.Equal(t, "11", both.Key())
	assert.False(t, first.Equal(both))

	// Union leaves its operands alone.
	u := first.Union(both)
	assert.Equal(t, "11", u.Key())
	assert.Equal(t, "10", first.Key())
}

func TestComputeSignature_IgnoresIdentifyingFields(t *testing.T) {
	tbl := scenarioA()
	layout, err := cvr.NewLayout(tbl, 8)
	require.NoError(t, err)

	row := append([]string(nil), tbl.Rows[0]...)
	before, err := ComputeSignature(layout, row)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		row[i] = "changed"
	}
	after, err := ComputeSignature(layout, row)
	require.NoError(t, err)
	assert.True(t, before.Equal(after))
}

func TestComputeSignature_WrongWidth(t *testing.T) {
	tbl := scenarioA()
	layout, err := cvr.NewLayout(tbl, 8)
	require.NoError(t, err)

	_, err = ComputeSignature(layout, tbl.Rows[0][:9])
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedLayout))
}

func TestSimilarityCompare(t *testing.T) {
	half := similarity{inter: 1, union: 2}
	third := similarity{inter: 1, union: 3}
	twoQuarters := similarity{inter: 2, union: 4}
	none := similarity{}

	assert.Equal(t, 1, half.compare(third))
	assert.Equal(t, -1, third.compare(half))
	assert.Equal(t, 0, half.compare(twoQuarters))
	assert.Equal(t, 0, none.compare(similarity{inter: 0, union: 5}))
	assert.Equal(t, -1, none.compare(third))
}

func TestStyleLabel(t *testing.T) {
	assert.Equal(t, "1R1", StyleLabel(1, true, 1))
	assert.Equal(t, "2S2", StyleLabel(2, false, 2))
	assert.Equal(t, "12S31", StyleLabel(12, false, 31))
}
