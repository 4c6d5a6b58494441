// Package vector holds the similarity math shared by the exact-scan search
// strategy and anything else that ranks embeddings in process.
package vector

import (
	"math"
	"slices"
)

// Candidate is a stored vector identified by its chunk id.
type Candidate struct {
	ID     int64
	Vector []float32
}

// Hit is a ranked candidate.
type Hit struct {
	ID    int64
	Score float64
}

// Cosine returns the cosine similarity of a and b.
// Vectors of different length or with zero magnitude score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize returns a unit-length copy of v. A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}

	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// IsFinite reports whether every component is a real number.
func IsFinite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Rank scores every candidate against query and returns the best topK,
// ordered by score descending with ties broken by lower id.
func Rank(candidates []Candidate, query []float32, topK int) []Hit {
	if topK <= 0 || len(candidates) == 0 {
		return []Hit{}
	}

	hits := make([]Hit, 0, len(candidates))
	for _, c := range candidates {
		hits = append(hits, Hit{ID: c.ID, Score: Cosine(c.Vector, query)})
	}

	SortHits(hits)

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// SortHits orders hits by score descending, then id ascending.
func SortHits(hits []Hit) {
	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
