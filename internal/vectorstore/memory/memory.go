// Package memory is an in-process chunk index using brute-force cosine
// similarity. Contents are lost on restart.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/service"
)

type entry struct {
	chunk  domain.ResumeChunk
	vector []float32
	norm   float64
}

// Index implements service.ChunkIndex.
type Index struct {
	mu       sync.RWMutex
	embedder service.Embedder
	entries  map[string]*entry
	order    []string
}

func NewIndex(embedder service.Embedder) *Index {
	return &Index{embedder: embedder, entries: make(map[string]*entry)}
}

// Len reports the number of stored chunks.
func (s *Index) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Index) Upsert(ctx context.Context, chunks []domain.ResumeChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return domain.IndexFailure(err)
	}
	if len(vectors) != len(chunks) {
		return domain.IndexFailure(fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range chunks {
		if _, ok := s.entries[c.ChunkID]; !ok {
			s.order = append(s.order, c.ChunkID)
		}
		s.entries[c.ChunkID] = &entry{chunk: c, vector: vectors[i], norm: norm(vectors[i])}
	}
	return nil
}

func (s *Index) Query(ctx context.Context, text string, limit int) ([]domain.ResumeChunk, error) {
	vec, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, domain.IndexFailure(err)
	}
	qnorm := norm(vec)

	s.mu.RLock()
	type scored struct {
		e     *entry
		score float64
	}
	candidates := make([]scored, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		candidates = append(candidates, scored{e: e, score: cosine(vec, e.vector, qnorm, e.norm)})
	}
	s.mu.RUnlock()

	// stable so that ties keep insertion order
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	if limit > len(candidates) {
		limit = len(candidates)
	}
	results := make([]domain.ResumeChunk, 0, limit)
	for i := 0; i < limit; i++ {
		results = append(results, candidates[i].e.chunk.Ranked(i, candidates[i].score))
	}
	return results, nil
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	n := min(len(a), len(b))
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum / (na * nb)
}

func norm(v []float32) float64 {
	sum := 0.0
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
