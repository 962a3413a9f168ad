// Package index is an exact nearest-neighbour index over chunk embeddings,
// persisted as whole snapshots to an embedded key-value store.
package index

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"knowledge-assistant/internal/model"
)

var (
	// ErrNoSnapshot means nothing has been persisted yet.
	ErrNoSnapshot = errors.New("no persisted index")

	// ErrDimensionMismatch means a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingModelMismatch means the persisted index was built with a
	// different embedding model than the one configured.
	ErrEmbeddingModelMismatch = errors.New("embedding model mismatch")
)

// Entry is one indexed chunk.
type Entry struct {
	Vector []float32   `json:"vector"`
	Chunk  model.Chunk `json:"chunk"`
}

// Hit is a search result; Distance is squared Euclidean distance.
type Hit struct {
	Chunk    model.Chunk
	Distance float32
}

// Filter decides whether an entry takes part in a search. nil admits all.
type Filter func(model.Metadata) bool

// Meta describes a snapshot.
type Meta struct {
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	Count          int       `json:"count"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Snapshot is the persisted form of an index. Entries keep insertion order.
type Snapshot struct {
	Meta    Meta
	Entries []Entry
}

// Index is a flat L2 index. It is not safe for concurrent use; Manager
// serializes access to it.
type Index struct {
	dim     int
	entries []Entry
}

func New() *Index {
	return &Index{}
}

func (ix *Index) Len() int {
	return len(ix.entries)
}

func (ix *Index) Dimension() int {
	return ix.dim
}

// Add appends entries. The first vector fixes the index dimension.
func (ix *Index) Add(entries []Entry) error {
	dim := ix.dim
	for i, e := range entries {
		if len(e.Vector) == 0 {
			return fmt.Errorf("entry %d: %w: empty vector", i, ErrDimensionMismatch)
		}
		if dim == 0 {
			dim = len(e.Vector)
		}
		if len(e.Vector) != dim {
			return fmt.Errorf("entry %d: %w: got %d want %d", i, ErrDimensionMismatch, len(e.Vector), dim)
		}
	}
	ix.dim = dim
	ix.entries = append(ix.entries, entries...)
	return nil
}

// truncate drops entries beyond n, restoring dim if the index becomes empty.
func (ix *Index) truncate(n, dim int) {
	clear(ix.entries[n:])
	ix.entries = ix.entries[:n]
	ix.dim = dim
}

// Search returns up to k entries nearest to query, ascending by distance.
// Equal distances keep insertion order.
func (ix *Index) Search(query []float32, k int, filter Filter) ([]Hit, error) {
	if k <= 0 || len(ix.entries) == 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query: %w: got %d want %d", ErrDimensionMismatch, len(query), ix.dim)
	}

	hits := make([]Hit, 0, len(ix.entries))
	for _, e := range ix.entries {
		if filter != nil && !filter(e.Chunk.Metadata) {
			continue
		}
		hits = append(hits, Hit{Chunk: e.Chunk, Distance: squaredL2(query, e.Vector)})
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Snapshot copies the index into its persisted form.
func (ix *Index) Snapshot(embeddingModel string) *Snapshot {
	return &Snapshot{
		Meta: Meta{
			EmbeddingModel: embeddingModel,
			Dimension:      ix.dim,
			Count:          len(ix.entries),
			UpdatedAt:      time.Now().UTC(),
		},
		Entries: slices.Clone(ix.entries),
	}
}

// Restore replaces the index contents with snap.
func (ix *Index) Restore(snap *Snapshot) error {
	fresh := New()
	if err := fresh.Add(snap.Entries); err != nil {
		return err
	}
	if snap.Meta.Dimension != 0 && fresh.dim != 0 && snap.Meta.Dimension != fresh.dim {
		return fmt.Errorf("snapshot: %w: meta says %d, entries have %d", ErrDimensionMismatch, snap.Meta.Dimension, fresh.dim)
	}
	*ix = *fresh
	return nil
}

// Documents summarizes indexed sources in first-ingested order.
func (ix *Index) Documents(filter Filter) []model.DocumentSummary {
	pos := make(map[string]int)
	var out []model.DocumentSummary
	for _, e := range ix.entries {
		md := e.Chunk.Metadata
		if filter != nil && !filter(md) {
			continue
		}
		if i, ok := pos[md.Source]; ok {
			out[i].Chunks++
			continue
		}
		pos[md.Source] = len(out)
		out = append(out, model.DocumentSummary{Source: md.Source, Department: md.Department, Chunks: 1})
	}
	return out
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
