package server

import (
	"sync"

	"github.com/Mohsinsiddi/tsender/internal/airdrop"
)

const maxRecords = 100

// recordStore keeps the most recent records for lookup by ID. Records are
// session scoped and lost on restart.
type recordStore struct {
	mu    sync.RWMutex
	limit int
	order []string
	byID  map[string]*airdrop.Record
}

func newRecordStore(limit int) *recordStore {
	return &recordStore{limit: limit, byID: make(map[string]*airdrop.Record)}
}

func (s *recordStore) put(rec *airdrop.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[rec.ID]; !ok {
		s.order = append(s.order, rec.ID)
	}
	s.byID[rec.ID] = rec
	for len(s.order) > s.limit {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *recordStore) get(id string) (*airdrop.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	return rec, ok
}
