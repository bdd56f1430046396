package notification

import "sync"

// MemoryStore keeps the pending set in process memory. Used by tests and
// by deployments that accept losing pending digests on restart.
type MemoryStore struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pending: make(map[string]struct{})}
}

func (s *MemoryStore) Add(uid string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pending[uid]; exists {
		return false, nil
	}
	s.pending[uid] = struct{}{}
	return true, nil
}

func (s *MemoryStore) All() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uids := make([]string, 0, len(s.pending))
	for uid := range s.pending {
		uids = append(uids, uid)
	}
	return uids, nil
}

func (s *MemoryStore) Remove(uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, uid)
	return nil
}
