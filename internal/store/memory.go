// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/pdiddy/specgrade/pkg/types"
)

// MemoryStore keeps everything in maps. Documents are copied on the way in
// and out so callers cannot alias stored state.
type MemoryStore struct {
	mu        sync.RWMutex
	generated map[string][]byte
	results   map[string]types.ResultRecord
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		generated: make(map[string][]byte),
		results:   make(map[string]types.ResultRecord),
	}
}

func (s *MemoryStore) SaveGenerated(_ context.Context, endpointID string, doc types.Document) error {
	if err := checkID(endpointID); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling generated document %s: %w", endpointID, err)
	}
	s.mu.Lock()
	s.generated[endpointID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SaveResult(_ context.Context, rec types.ResultRecord) error {
	if err := checkID(rec.EndpointID); err != nil {
		return err
	}
	s.mu.Lock()
	s.results[rec.EndpointID] = rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LoadGenerated(_ context.Context, endpointID string) (types.Document, error) {
	s.mu.RLock()
	data, ok := s.generated[endpointID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("generated document %s: %w", endpointID, ErrNotFound)
	}
	var doc types.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *MemoryStore) LoadResult(_ context.Context, endpointID string) (types.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.results[endpointID]
	if !ok {
		return types.ResultRecord{}, fmt.Errorf("result %s: %w", endpointID, ErrNotFound)
	}
	return rec, nil
}

func (s *MemoryStore) ListResults(_ context.Context) ([]types.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]types.ResultRecord, 0, len(s.results))
	for _, rec := range s.results {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].EndpointID < records[j].EndpointID
	})
	return records, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
