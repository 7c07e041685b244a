// Package cache keeps extraction results keyed by the content of the document set
// they were computed from.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"sync"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// Store holds record sets by key.
type Store interface {
	Get(ctx context.Context, key string) ([]entity.FieldRecord, bool, error)
	Put(ctx context.Context, key string, records []entity.FieldRecord) error
	Invalidate(ctx context.Context, key string) error
}

// Key identifies a document sequence by names and contents. Reordering, renaming or
// editing any document yields a different key.
func Key(docs []entity.Document) string {
	h := sha256.New()
	for _, d := range docs {
		sum := sha256.Sum256(d.Data)
		h.Write([]byte(d.Name))
		h.Write([]byte{0})
		h.Write(sum[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]entity.FieldRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]entity.FieldRecord)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]entity.FieldRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return cloneRecords(recs), true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, records []entity.FieldRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = cloneRecords(records)
	return nil
}

func (s *MemoryStore) Invalidate(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len returns the number of cached sets.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cloneRecords(in []entity.FieldRecord) []entity.FieldRecord {
	out := slices.Clone(in)
	for i := range out {
		fields := make(map[string]string, len(out[i].Fields))
		for k, v := range out[i].Fields {
			fields[k] = v
		}
		out[i].Fields = fields
	}
	return out
}
