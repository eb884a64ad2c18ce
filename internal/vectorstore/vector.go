// Package vectorstore keeps catalog assessments together with their
// embeddings and answers nearest-neighbour queries by cosine distance.
package vectorstore

import (
	"cmp"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"

	"github.com/spigell/assessment-recommender/internal/catalog"
)

var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Item is one assessment ready to be stored.
type Item struct {
	Assessment *catalog.Assessment
	Document   string
	Embedding  []float32
}

// Store is implemented by SQLiteStore and MemoryStore.
type Store interface {
	Upsert(ctx context.Context, items []Item) error
	Nearest(ctx context.Context, vec []float32, n int) ([]catalog.Hit, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// ID derives the stable record id of an assessment from its URL.
func ID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

// Distance is the cosine distance between a and b, never below zero.
// A zero vector is treated as orthogonal to everything.
func Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 1, nil
	}

	return max(0, 1-dot/(math.Sqrt(normA)*math.Sqrt(normB))), nil
}

// rank orders hits by ascending distance, ties by URL, and keeps the first n.
func rank(hits []catalog.Hit, n int) []catalog.Hit {
	slices.SortFunc(hits, func(a, b catalog.Hit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Assessment.URL, b.Assessment.URL)
	})
	if n >= 0 && len(hits) > n {
		hits = hits[:n]
	}
	return hits
}

func validate(items []Item) error {
	for i, it := range items {
		if it.Assessment == nil || it.Assessment.URL == "" {
			return fmt.Errorf("item %d has no url", i)
		}
		if len(it.Embedding) == 0 {
			return fmt.Errorf("item %q has no embedding", it.Assessment.URL)
		}
	}
	return nil
}

func encodeEmbedding(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding blob of %d bytes is not a float32 vector", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}
