package consent

import (
	"context"
	"sync"

	"legalgate/pkg/platform/sentinel"
)

// InMemoryStore keeps consent records in a map. Used by tests and dev runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]ConsentRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]ConsentRecord)}
}

func (s *InMemoryStore) Put(_ context.Context, record ConsentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.SubjectID] = record
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, subjectID string) (*ConsentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[subjectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &record, nil
}

func (s *InMemoryStore) Delete(_ context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, subjectID)
	return nil
}
