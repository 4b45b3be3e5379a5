// Package vectorindex implements a flat cosine-distance similarity index
// over embedded regulatory chunks, with on-disk snapshot persistence.
package vectorindex

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"aicodeguard/internal/domain"
)

// Record pairs an embedding vector with its originating chunk.
type Record struct {
	Vector []float64    `json:"vector"`
	Chunk  domain.Chunk `json:"chunk"`
}

// Result is a single nearest-neighbor match. Lower distance is closer.
type Result struct {
	Chunk    domain.Chunk
	Distance float64
}

// Index stores vectors and answers k-nearest-neighbor queries by brute
// force. Vectors are L2-normalized on insertion, so cosine distance reduces
// to 1 minus the dot product.
type Index struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	chunks    []domain.Chunk
}

// Build constructs a fresh index from an initial batch of records.
func Build(records []Record) (*Index, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: build requires at least one record", domain.ErrEmptyIndex)
	}
	ix := &Index{dimension: len(records[0].Vector)}
	if err := ix.Extend(records); err != nil {
		return nil, err
	}
	return ix, nil
}

// Extend appends records, preserving existing vectors and their positions.
func (ix *Index) Extend(records []Record) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, r := range records {
		if len(r.Vector) != ix.dimension {
			return fmt.Errorf("%w: vector dimension %d, index dimension %d",
				domain.ErrConfiguration, len(r.Vector), ix.dimension)
		}
		ix.vectors = append(ix.vectors, normalize(r.Vector))
		ix.chunks = append(ix.chunks, r.Chunk)
	}
	return nil
}

// Search returns the k records closest to the query vector, ordered by
// ascending distance. The result length is min(k, Len()). A query whose
// dimension differs from the index's is rejected rather than compared
// against a truncated vector.
func (ix *Index) Search(query []float64, k int) ([]Result, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d",
			domain.ErrConfiguration, len(query), ix.dimension)
	}
	if k <= 0 || len(ix.vectors) == 0 {
		return nil, nil
	}
	q := normalize(query)
	results := make([]Result, len(ix.vectors))
	for i, v := range ix.vectors {
		results[i] = Result{Chunk: ix.chunks[i], Distance: 1 - dot(v, q)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Len returns the number of stored records.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// Dimension returns the embedding dimensionality of the index.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimension
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(v []float64) []float64 {
	norm := math.Sqrt(dot(v, v))
	if norm == 0 {
		return v
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
