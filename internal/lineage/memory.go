// Package lineage provides the lineage store implementations backing the
// conductor's idempotency check and the audit history queries.
package lineage

import (
	"context"
	"sync"

	"github.com/inferloop/dataforge/pkg/models"
)

// MemoryStore is an in-process lineage store, used by tests and single-run
// CLI invocations with no external state.
type MemoryStore struct {
	mu        sync.RWMutex
	completed map[string]*models.LineageRow
	history   map[string][]*models.LineageEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		completed: make(map[string]*models.LineageRow),
		history:   make(map[string][]*models.LineageEntry),
	}
}

func (s *MemoryStore) HasCompleted(_ context.Context, key, targetTable string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.completed[markerKey(key, targetTable)]
	return ok, nil
}

// MarkCompleted records the completion marker under both the content
// fingerprint and the job id, so either key short-circuits a re-run.
func (s *MemoryStore) MarkCompleted(_ context.Context, fingerprint, targetTable string, row *models.LineageRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fingerprint != "" {
		s.completed[markerKey(fingerprint, targetTable)] = row
	}
	if row != nil && row.JobID != "" {
		s.completed[markerKey(row.JobID, targetTable)] = row
	}
	return nil
}

func (s *MemoryStore) Append(_ context.Context, jobID string, entry *models.LineageEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.history[jobID] = append(s.history[jobID], &cp)
	return nil
}

func (s *MemoryStore) History(_ context.Context, jobID string) ([]*models.LineageEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[jobID]
	out := make([]*models.LineageEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func markerKey(key, targetTable string) string {
	return key + "|" + targetTable
}
