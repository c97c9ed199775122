// Package memorystore provides in-memory implementations of the vector,
// document and cache stores. They back tests and the store-less local mode;
// the Postgres implementations are the production path.
package memorystore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/insightlabs-ai/docinsight/internal/models"
)

// VectorStore is a brute-force cosine-similarity store.
type VectorStore struct {
	mu     sync.RWMutex
	chunks map[string]models.Chunk
}

func NewVectorStore() *VectorStore {
	return &VectorStore{chunks: make(map[string]models.Chunk)}
}

func (s *VectorStore) Upsert(_ context.Context, chunks []models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range chunks {
		s.chunks[ch.ID] = ch
	}
	return nil
}

func (s *VectorStore) Query(_ context.Context, vector []float32, topK int) ([]models.ScoredChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]models.ScoredChunk, 0, len(s.chunks))
	for _, ch := range s.chunks {
		scored = append(scored, models.ScoredChunk{Chunk: ch, Score: cosine(ch.Embedding, vector)})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})
	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

func (s *VectorStore) DeleteByIDs(_ context.Context, chunkIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range chunkIDs {
		delete(s.chunks, id)
	}
	return nil
}

func (s *VectorStore) DeleteByDoc(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.chunks {
		if ch.DocID == docID {
			delete(s.chunks, id)
		}
	}
	return nil
}

// Len reports how many chunks the store holds.
func (s *VectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// DocStore is the in-memory dedup ledger.
type DocStore struct {
	mu   sync.RWMutex
	recs map[string]models.DocumentRecord
}

func NewDocStore() *DocStore {
	return &DocStore{recs: make(map[string]models.DocumentRecord)}
}

func (s *DocStore) Put(_ context.Context, rec *models.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.DocID] = *rec
	return nil
}

func (s *DocStore) Get(_ context.Context, docID string) (*models.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[docID]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (s *DocStore) Delete(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, docID)
	return nil
}

// CacheStore is a map-backed key-value cache with no eviction.
type CacheStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewCacheStore() *CacheStore {
	return &CacheStore{entries: make(map[string][]byte)}
}

func (s *CacheStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	out := append([]byte(nil), v...)
	return out, true, nil
}

func (s *CacheStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = append([]byte(nil), value...)
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2))
}
