package store

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/opsforge/analytics-engine/internal/models"
)

const shardCount = 16

// MemoryStore is a sharded in-process HistoryStore. Each signature maps to an
// append-only observation list; shards keep unrelated signatures from
// contending on one lock.
type MemoryStore struct {
	shards    [shardCount]memoryShard
	maxPerSig int
}

type memoryShard struct {
	mu       sync.RWMutex
	patterns map[string][]models.SelectionObservation
}

// NewMemoryStore creates a MemoryStore retaining up to maxPerSignature
// observations per signature (0 disables the cap). When the cap is exceeded
// the oldest observations are dropped.
func NewMemoryStore(maxPerSignature int) *MemoryStore {
	s := &MemoryStore{maxPerSig: maxPerSignature}
	for i := range s.shards {
		s.shards[i].patterns = make(map[string][]models.SelectionObservation)
	}
	return s
}

// GetHistory returns a copy of the observation list for a signature. A
// missing signature yields an empty history, never an error.
func (s *MemoryStore) GetHistory(_ context.Context, signature string) ([]models.SelectionObservation, error) {
	shard := s.shard(signature)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	history := shard.patterns[signature]
	return append([]models.SelectionObservation(nil), history...), nil
}

// AppendHistory atomically appends one observation, creating the bucket
// lazily and enforcing the retention cap.
func (s *MemoryStore) AppendHistory(_ context.Context, signature string, obs models.SelectionObservation) error {
	shard := s.shard(signature)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	history := append(shard.patterns[signature], obs)
	if s.maxPerSig > 0 && len(history) > s.maxPerSig {
		history = history[len(history)-s.maxPerSig:]
	}
	shard.patterns[signature] = history
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) shard(signature string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(signature))
	return &s.shards[h.Sum32()%shardCount]
}
