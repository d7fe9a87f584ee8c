// Package vector provides an exact inner-product index over normalized vectors.
package vector

import "context"

// Filter selects which stored IDs are eligible for a search. It is applied to every
// candidate before ranking, so an ineligible vector can never take a result slot.
// A nil Filter admits everything.
type Filter func(id string) bool

// VectorIndex defines vector storage and similarity search.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int, filter Filter) ([]*VectorResult, error)
	Size() int
	Dimensions() int
	Close() error
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	ID    string
	Score float64 // inner product; equals cosine similarity for normalized vectors
}
