package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	v := []float32{0.3, -1.2, 4.5, 0}

	assert.InDelta(t, 1.0, Cosine(v, v), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 2}, []float32{-1, -2}), 1e-9)
}

func TestCosine_MagnitudeInsensitive(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{10, 20, 30}
	assert.InDelta(t, 1.0, Cosine(a, b), 1e-9)
}

func TestCosine_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}

func TestNormalize(t *testing.T) {
	n := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, n[0], 1e-6)
	assert.InDelta(t, 0.8, n[1], 1e-6)

	zero := Normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite([]float32{1, 2}))
	assert.False(t, IsFinite([]float32{1, float32(math.NaN())}))
	assert.False(t, IsFinite([]float32{float32(math.Inf(1))}))
}

func TestRank_OrderAndTies(t *testing.T) {
	query := []float32{1, 0}
	candidates := []Candidate{
		{ID: 7, Vector: []float32{0, 1}},
		{ID: 5, Vector: []float32{1, 0}},
		{ID: 3, Vector: []float32{2, 0}}, // same direction as 5, lower id wins
		{ID: 9, Vector: []float32{1, 1}},
	}

	hits := Rank(candidates, query, 3)
	require.Len(t, hits, 3)
	assert.Equal(t, int64(3), hits[0].ID)
	assert.Equal(t, int64(5), hits[1].ID)
	assert.Equal(t, int64(9), hits[2].ID)

	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestRank_Bounds(t *testing.T) {
	candidates := []Candidate{{ID: 1, Vector: []float32{1}}}
	assert.Empty(t, Rank(candidates, []float32{1}, 0))
	assert.Empty(t, Rank(nil, []float32{1}, 5))
	assert.Len(t, Rank(candidates, []float32{1}, 5), 1)
}
