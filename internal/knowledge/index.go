// Package knowledge holds the prebuilt vector indexes of the source papers
// and the query engines the agents retrieve from.
package knowledge

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrIndexNotFound     = errors.New("knowledge index not found")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrEmptyIndex        = errors.New("knowledge index has no chunks")
)

// Chunk is one embedded passage of a source document.
type Chunk struct {
	ID     string    `json:"id"`
	Source string    `json:"source"`
	Text   string    `json:"text"`
	Vector []float64 `json:"vector"`
}

// Match is a chunk scored against a query.
type Match struct {
	Chunk Chunk
	Score float64
}

// Index is an immutable set of chunks with unit-length vectors. It is safe
// for concurrent queries.
type Index struct {
	name   string
	dim    int
	chunks []Chunk
}

// NewIndex validates chunks and normalizes their vectors. The chunks are
// copied so later changes by the caller do not affect the index.
func NewIndex(name string, chunks []Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyIndex)
	}
	dim := len(chunks[0].Vector)
	if dim == 0 {
		return nil, fmt.Errorf("%s: chunk %q: %w", name, chunks[0].ID, ErrDimensionMismatch)
	}

	owned := make([]Chunk, len(chunks))
	for i, c := range chunks {
		if len(c.Vector) != dim {
			return nil, fmt.Errorf("%s: chunk %q has %d dimensions, want %d: %w",
				name, c.ID, len(c.Vector), dim, ErrDimensionMismatch)
		}
		c.Vector = normalize(c.Vector)
		owned[i] = c
	}
	return &Index{name: name, dim: dim, chunks: owned}, nil
}

func (i *Index) Name() string { return i.name }

// Dimension is the length of every vector in the index.
func (i *Index) Dimension() int { return i.dim }

func (i *Index) Len() int { return len(i.chunks) }

// TopK returns the k chunks most similar to query by cosine similarity,
// best first. Ties keep index order.
func (i *Index) TopK(query []float64, k int) ([]Match, error) {
	if len(query) != i.dim {
		return nil, fmt.Errorf("%s: query has %d dimensions, want %d: %w",
			i.name, len(query), i.dim, ErrDimensionMismatch)
	}
	if k <= 0 {
		return nil, nil
	}
	if k > len(i.chunks) {
		k = len(i.chunks)
	}

	q := normalize(query)
	matches := make([]Match, len(i.chunks))
	for n, c := range i.chunks {
		matches[n] = Match{Chunk: c, Score: dot(q, c.Vector)}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	return matches[:k], nil
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// normalize returns a unit-length copy of v. A zero vector is copied as is.
func normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	norm := math.Sqrt(dot(v, v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
