package store

import (
	"context"
	"sync"

	"github.com/Anzil-km/attention-nudge/models"
)

type memoryStore struct {
	presenceMu sync.RWMutex
	presence   map[string]models.PresenceRecord

	subsMu sync.RWMutex
	subs   map[string][]models.Subscription
}

// NewMemoryStore returns a process-local store. All state is lost when the
// process exits.
func NewMemoryStore() Store {
	return &memoryStore{
		presence: make(map[string]models.PresenceRecord),
		subs:     make(map[string][]models.Subscription),
	}
}

func (s *memoryStore) Put(_ context.Context, rec models.PresenceRecord) error {
	s.presenceMu.Lock()
	defer s.presenceMu.Unlock()

	s.presence[rec.Identity] = rec
	return nil
}

func (s *memoryStore) Get(_ context.Context, identity string) (models.PresenceRecord, error) {
	s.presenceMu.RLock()
	defer s.presenceMu.RUnlock()

	rec, ok := s.presence[identity]
	if !ok {
		return models.PresenceRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *memoryStore) Upsert(_ context.Context, key string, sub models.Subscription, limit int) error {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	set := s.subs[key]
	for i := range set {
		if set[i].Endpoint == sub.Endpoint {
			set[i] = sub
			return nil
		}
	}

	set = append(set, sub)
	if limit > 0 && len(set) > limit {
		set = set[len(set)-limit:]
	}
	s.subs[key] = set
	return nil
}

func (s *memoryStore) List(_ context.Context, key string) ([]models.Subscription, error) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()

	set := s.subs[key]
	out := make([]models.Subscription, len(set))
	copy(out, set)
	return out, nil
}

func (s *memoryStore) Remove(_ context.Context, key, endpoint string) (bool, error) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	set := s.subs[key]
	for i := range set {
		if set[i].Endpoint != endpoint {
			continue
		}
		next := make([]models.Subscription, 0, len(set)-1)
		next = append(next, set[:i]...)
		next = append(next, set[i+1:]...)
		if len(next) == 0 {
			delete(s.subs, key)
		} else {
			s.subs[key] = next
		}
		return true, nil
	}
	return false, nil
}

func (s *memoryStore) Close() error {
	return nil
}
