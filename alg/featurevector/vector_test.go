package featurevector

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSparseAddDropsZeros(t *testing.T) {
	a := Sparse{"x": 1, "y": 2}
	sum := a.Add(Sparse{"x": -1, "z": 3})
	assert.Equal(t, Sparse{"y": 2, "z": 3}, sum)
	assert.Equal(t, Sparse{"x": 1, "y": 2}, a, "Add must not modify the receiver")
}

func TestPlusEqualsIsAdditive(t *testing.T) {
	v := NewVector()
	v.Assign("X", []float64{1.0})
	extra := NewVector()
	extra.Assign("X", []float64{0.5})
	extra.Assign("TM0", []float64{0.1, 0.2})
	extra.AssignSparse("X_foo", 0.25)

	v.PlusEquals(extra)
	assert.Equal(t, []float64{1.5}, v.Get("X"))
	assert.Equal(t, []float64{0.1, 0.2}, v.Get("TM0"))
	assert.Equal(t, 0.25, v.SparseWeight("X_foo"))
}

func TestResizeKeepsValues(t *testing.T) {
	v := NewVector()
	v.Assign("TM0", []float64{1})
	v.Resize("TM0", 3)
	assert.Equal(t, []float64{1, 0, 0}, v.Get("TM0"))
	v.Resize("TM0", 2)
	assert.Len(t, v.Get("TM0"), 3)
}

func TestAssignOne(t *testing.T) {
	v := NewVector()
	require.NoError(t, v.AssignOne("WordPenalty0", -1))
	assert.Equal(t, []float64{-1}, v.Get("WordPenalty0"))
	v.Assign("TM0", []float64{1, 2})
	assert.ErrorIs(t, v.AssignOne("TM0", 3), ErrNotSingleScore)
}

func TestDot(t *testing.T) {
	v := NewVector()
	v.Assign("TM0", []float64{0.5, 2})
	assert.InDelta(t, 0.5*2+2*3, v.Dot("TM0", []float64{2, 3}), 1e-9)
	assert.InDelta(t, 0.5, v.Dot("TM0", []float64{1, 0, 7}), 1e-9, "extra scores have no weight")
	assert.Zero(t, v.Dot("missing", []float64{1}))
}

func TestReadWeightFile(t *testing.T) {
	entries, err := ReadWeightFile(strings.NewReader(`
# extra weights
X 0.5
TM0= 0.1 0.2
X_foo 1
X_foo 2
`))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, entries["X"])
	assert.Equal(t, []float64{0.1, 0.2}, entries["TM0"])
	assert.Equal(t, []float64{3}, entries["X_foo"])

	_, err = ReadWeightFile(strings.NewReader("lonely\n"))
	assert.Error(t, err)
	_, err = ReadWeightFile(strings.NewReader("X abc\n"))
	assert.Error(t, err)
}

func TestWriteRoundTripsThroughReader(t *testing.T) {
	v := NewVector()
	v.Assign("TM0", []float64{0.1, 0.2})
	v.AssignSparse("TM0_a", 0.5)
	var buf bytes.Buffer
	require.NoError(t, v.Write(&buf))
	assert.Equal(t, "TM0= 0.1 0.2\nTM0_a 0.5\n", buf.String())
}

func TestWeightsSnapshotIsolation(t *testing.T) {
	w := NewWeights(nil)
	require.NoError(t, w.SetWeight("BleuScoreFeature", 1))
	before := w.Snapshot()
	require.NoError(t, w.SetWeight("BleuScoreFeature", 2))
	assert.Equal(t, []float64{1}, before.Get("BleuScoreFeature"), "old snapshots are never mutated")
	assert.Equal(t, []float64{2}, w.Snapshot().Get("BleuScoreFeature"))
}

func TestWeightsFailedUpdateIsNotPublished(t *testing.T) {
	w := NewWeights(nil)
	require.NoError(t, w.SetWeights("TM0", 2, []float64{1, 2}))
	assert.Error(t, w.SetWeight("TM0", 5))
	assert.ErrorIs(t, w.SetWeights("TM0", 2, []float64{1, 2, 3}), ErrScoreCount)
	assert.Equal(t, []float64{1, 2}, w.Snapshot().Get("TM0"))
}

func TestAssignScores(t *testing.T) {
	v := NewVector()
	require.NoError(t, v.AssignScores("TM0", 2, []float64{0.1, 0.2}))
	assert.Equal(t, []float64{0.1, 0.2}, v.Get("TM0"))

	err := v.AssignScores("WordPenalty0", 1, []float64{-1, 7, 9})
	assert.ErrorIs(t, err, ErrScoreCount)
	assert.Contains(t, err.Error(), "WordPenalty0")
	assert.ErrorIs(t, v.AssignScores("TM0", 2, []float64{0.5}), ErrScoreCount)
	assert.Equal(t, []float64{0.1, 0.2}, v.Get("TM0"), "a rejected assignment leaves the slot alone")
	assert.Nil(t, v.Get("WordPenalty0"))
}

func TestWeightsConcurrentSetters(t *testing.T) {
	w := NewWeights(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = w.Update(func(v *Vector) error {
				v.Resize("counter", 1)
				v.Dense["counter"][0]++
				return nil
			})
			_ = w.Snapshot().Get("counter")
		}(i)
	}
	wg.Wait()
	assert.Equal(t, []float64{50}, w.Snapshot().Get("counter"))
}
