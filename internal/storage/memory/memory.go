// Package memory provides in-memory storage implementations used by tests
// and by callers that do not need durability.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/louisbranch/protoforge/internal/prototype"
	"github.com/louisbranch/protoforge/internal/storage"
)

// Store holds prototypes and spawn records in process memory. It implements
// storage.PrototypeStore and storage.SpawnStore.
type Store struct {
	mu         sync.RWMutex
	prototypes map[string]prototype.Prototype
	spawns     map[string][]string
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		prototypes: make(map[string]prototype.Prototype),
		spawns:     make(map[string][]string),
	}
}

// Put implements storage.PrototypeStore.
func (s *Store) Put(ctx context.Context, proto prototype.Prototype) error {
	proto = proto.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prototypes[proto.Key] = proto
	return nil
}

// Get implements storage.PrototypeStore.
func (s *Store) Get(ctx context.Context, key string) (prototype.Prototype, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	s.mu.RLock()
	defer s.mu.RUnlock()
	proto, ok := s.prototypes[key]
	if !ok {
		return prototype.Prototype{}, storage.ErrNotFound
	}
	return proto, nil
}

// Delete implements storage.PrototypeStore.
func (s *Store) Delete(ctx context.Context, key string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prototypes[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.prototypes, key)
	return nil
}

// Search implements storage.PrototypeStore.
func (s *Store) Search(ctx context.Context, key string, tags []prototype.Tag) ([]prototype.Prototype, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.prototypes))
	for k := range s.prototypes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pool []prototype.Prototype
	for _, k := range keys {
		proto := s.prototypes[k]
		if len(tags) > 0 && !hasAnyTag(proto, tags) {
			continue
		}
		pool = append(pool, proto)
	}
	if key == "" {
		return pool, nil
	}
	key = strings.ToLower(strings.TrimSpace(key))
	var exact, partial []prototype.Prototype
	for _, proto := range pool {
		if proto.Key == key {
			exact = append(exact, proto)
		} else if strings.Contains(proto.Key, key) {
			partial = append(partial, proto)
		}
	}
	if len(exact) > 0 {
		return exact, nil
	}
	return partial, nil
}

func hasAnyTag(proto prototype.Prototype, tags []prototype.Tag) bool {
	for _, want := range tags {
		for _, tag := range proto.Tags {
			if tag.Name == want.Name && tag.Category == want.Category {
				return true
			}
		}
	}
	return false
}

// RecordSpawn implements storage.SpawnStore.
func (s *Store) RecordSpawn(ctx context.Context, entityID, prototypeKey string) error {
	prototypeKey = strings.ToLower(strings.TrimSpace(prototypeKey))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.spawns[prototypeKey] {
		if existing == entityID {
			return nil
		}
	}
	s.spawns[prototypeKey] = append(s.spawns[prototypeKey], entityID)
	return nil
}

// SpawnedFrom implements storage.SpawnStore.
func (s *Store) SpawnedFrom(ctx context.Context, prototypeKey string) ([]string, error) {
	prototypeKey = strings.ToLower(strings.TrimSpace(prototypeKey))
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.spawns[prototypeKey]...), nil
}
