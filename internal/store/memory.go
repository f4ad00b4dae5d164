package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/runsheet-systems/runsheet-data/internal/model"
)

// InMemoryStore keeps records in process memory with the same optimistic
// concurrency semantics as the OpenSearch store. Used in tests and as a
// store backend for standalone demos.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[model.DomainType]map[string]memEntry
}

type memEntry struct {
	rec   model.Record
	seqNo int64
}

func NewInMemoryStore() *InMemoryStore {
	s := &InMemoryStore{data: make(map[model.DomainType]map[string]memEntry)}
	for _, d := range model.AllDomains {
		s.data[d] = make(map[string]memEntry)
	}
	return s
}

func (s *InMemoryStore) GetCurrent(ctx context.Context, domain model.DomainType, key string) (*model.Record, Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data[domain][key]
	if !ok {
		return nil, Token{}, model.ErrNotFound
	}
	rec := entry.rec
	rec.Fields = entry.rec.Fields.Clone()
	return &rec, Token{SeqNo: entry.seqNo, PrimaryTerm: 1}, nil
}

func (s *InMemoryStore) Create(ctx context.Context, rec model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[rec.Domain][rec.Key]; exists {
		return fmt.Errorf("create %s/%s: %w", rec.Domain, rec.Key, model.ErrVersionConflict)
	}
	rec.Fields = rec.Fields.Clone()
	s.data[rec.Domain][rec.Key] = memEntry{rec: rec, seqNo: 1}
	return nil
}

func (s *InMemoryStore) Update(ctx context.Context, rec model.Record, tok Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.data[rec.Domain][rec.Key]
	if !exists || entry.seqNo != tok.SeqNo {
		return fmt.Errorf("update %s/%s: %w", rec.Domain, rec.Key, model.ErrVersionConflict)
	}
	rec.Fields = rec.Fields.Clone()
	s.data[rec.Domain][rec.Key] = memEntry{rec: rec, seqNo: entry.seqNo + 1}
	return nil
}

func (s *InMemoryStore) ReplaceAll(ctx context.Context, domain model.DomainType, recs []model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := make(map[string]memEntry, len(recs))
	for _, rec := range recs {
		rec.Fields = rec.Fields.Clone()
		fresh[rec.Key] = memEntry{rec: rec, seqNo: 1}
	}
	s.data[domain] = fresh
	return nil
}

func (s *InMemoryStore) List(ctx context.Context, domain model.DomainType) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Record, 0, len(s.data[domain]))
	for _, entry := range s.data[domain] {
		rec := entry.rec
		rec.Fields = entry.rec.Fields.Clone()
		out = append(out, rec)
	}
	return out, nil
}

func (s *InMemoryStore) Count(ctx context.Context, domain model.DomainType) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[domain]), nil
}

func (s *InMemoryStore) Ping(ctx context.Context) error { return nil }
