package service

import (
	"context"
	"sync"
	"time"
)

// LookupCacheStore keeps serialized list reads grouped by namespace so a write can
// drop every cached variant of a table at once.
type LookupCacheStore interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
	InvalidateNamespace(ctx context.Context, namespace string) error
}

type NoopLookupCacheStore struct{}

func (NoopLookupCacheStore) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopLookupCacheStore) Set(context.Context, string, string, []byte, time.Duration) error {
	return nil
}

func (NoopLookupCacheStore) InvalidateNamespace(context.Context, string) error {
	return nil
}

type cacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

type InMemoryLookupCacheStore struct {
	mu    sync.RWMutex
	store map[string]map[string]cacheEntry
	now   func() time.Time
}

func NewInMemoryLookupCacheStore() *InMemoryLookupCacheStore {
	return &InMemoryLookupCacheStore{
		store: make(map[string]map[string]cacheEntry),
		now:   time.Now,
	}
}

func (s *InMemoryLookupCacheStore) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	now := s.now()
	s.mu.RLock()
	entry, ok := s.store[namespace][key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !now.Before(entry.expiresAt) {
		s.mu.Lock()
		if ns, ok := s.store[namespace]; ok {
			delete(ns, key)
			if len(ns) == 0 {
				delete(s.store, namespace)
			}
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), entry.payload...), true, nil
}

func (s *InMemoryLookupCacheStore) Set(_ context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.store[namespace]
	if !ok {
		ns = make(map[string]cacheEntry)
		s.store[namespace] = ns
	}
	ns[key] = cacheEntry{payload: append([]byte(nil), value...), expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryLookupCacheStore) InvalidateNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, namespace)
	return nil
}
