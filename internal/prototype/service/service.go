// Package service implements the prototype gateway: merged search over the
// code-declared and persisted sources, create/update/delete of persisted
// prototypes with permission enforcement, and chain validation against the
// full searchable namespace.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/protoforge/internal/lock"
	"github.com/louisbranch/protoforge/internal/prototype"
	"github.com/louisbranch/protoforge/internal/prototype/validate"
	"github.com/louisbranch/protoforge/internal/registry"
	"github.com/louisbranch/protoforge/internal/storage"
)

// Service is the prototype gateway.
type Service struct {
	library     *registry.Library
	store       storage.PrototypeStore
	spawns      storage.SpawnStore
	locks       lock.Checker
	typeclasses prototype.TypeclassRegistry
	clock       func() time.Time
	tracer      trace.Tracer
}

// Option configures optional Service dependencies.
type Option func(*Service)

// WithSpawnStore wires the spawn audit store.
func WithSpawnStore(spawns storage.SpawnStore) Option {
	return func(s *Service) { s.spawns = spawns }
}

// WithLockChecker replaces the built-in lock checker.
func WithLockChecker(checker lock.Checker) Option {
	return func(s *Service) { s.locks = checker }
}

// WithTypeclasses wires the base-type registry used during validation.
func WithTypeclasses(typeclasses prototype.TypeclassRegistry) Option {
	return func(s *Service) { s.typeclasses = typeclasses }
}

// WithClock replaces the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// New creates a Service over the read-only library and the persisted store.
func New(library *registry.Library, store storage.PrototypeStore, opts ...Option) *Service {
	s := &Service{
		library: library,
		store:   store,
		locks:   lock.BasicChecker{},
		clock:   time.Now,
		tracer:  otel.Tracer("protoforge/prototype/service"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Search finds prototypes by key and/or tags across both sources. Persisted
// matches come first, then code-declared ones. With no filters every
// searchable prototype is returned.
//
// When a key filter produced more than one match and a subset matches the
// requested key exactly, the result narrows to that subset so fuzzy near
// matches do not crowd out an authoritative hit. An exact subset that still
// holds several entries means the two sources collide on a key; the
// collision is logged rather than silently resolved.
func (s *Service) Search(ctx context.Context, key string, tags []string) ([]prototype.Prototype, error) {
	ctx, span := s.tracer.Start(ctx, "prototype.Search")
	defer span.End()

	key = strings.ToLower(strings.TrimSpace(key))

	var dbTags []prototype.Tag
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		dbTags = append(dbTags, prototype.Tag{Name: tag, Category: prototype.TagCategoryDB})
	}
	var cleanTags []string
	for _, tag := range tags {
		if tag != "" {
			cleanTags = append(cleanTags, tag)
		}
	}

	var matches []prototype.Prototype
	if s.store != nil {
		dbMatches, err := s.store.Search(ctx, key, dbTags)
		if err != nil {
			return nil, fmt.Errorf("search persisted prototypes: %w", err)
		}
		matches = append(matches, dbMatches...)
	}
	if s.library != nil {
		for _, proto := range s.library.Search(key, cleanTags) {
			matches = append(matches, *proto)
		}
	}

	if len(matches) > 1 && key != "" {
		var exact []prototype.Prototype
		for _, match := range matches {
			if match.Key == key {
				exact = append(exact, match)
			}
		}
		if len(exact) > 0 && len(exact) < len(matches) {
			matches = exact
		}
		if len(exact) > 1 {
			log.Printf("prototype key %q exists in both the module library and the store", key)
		}
	}
	return matches, nil
}

// Save creates or updates a persisted prototype. The stored version, if any,
// is loaded first and incoming fields are layered on top, so partial updates
// keep untouched attributes. Meta defaults are filled from the existing
// version or hard defaults, the lock string is syntax-checked, and bare tags
// are normalized into (name, db_prototype) pairs before the merged prototype
// is written back in one atomic store write.
func (s *Service) Save(ctx context.Context, incoming prototype.Prototype) (prototype.Prototype, error) {
	ctx, span := s.tracer.Start(ctx, "prototype.Save")
	defer span.End()

	incoming = incoming.Normalize()
	if incoming.Key == "" {
		return prototype.Prototype{}, prototype.NewValidationError("prototype requires a prototype_key")
	}
	if s.library != nil && s.library.Has(incoming.Key) {
		return prototype.Prototype{}, fmt.Errorf(
			"%s is a read-only prototype (defined as code in %s): %w",
			incoming.Key, s.library.Source(incoming.Key), prototype.ErrPermission)
	}

	existing, err := s.store.Get(ctx, incoming.Key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return prototype.Prototype{}, fmt.Errorf("load existing prototype: %w", err)
	}

	merged := prototype.Merge(existing, incoming)
	if merged.Locks == "" {
		merged.Locks = prototype.DBLocks
	}
	if err := lock.Validate(merged.Locks); err != nil {
		return prototype.Prototype{}, prototype.NewValidationError(fmt.Sprintf("lock error: %v", err))
	}
	merged.Tags = normalizeTags(merged.Tags)

	if err := s.store.Put(ctx, merged); err != nil {
		return prototype.Prototype{}, fmt.Errorf("store prototype %s: %w", merged.Key, err)
	}
	return merged, nil
}

// normalizeTags gives every bare tag the persisted-prototype category.
func normalizeTags(tags []prototype.Tag) []prototype.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]prototype.Tag, len(tags))
	for i, tag := range tags {
		if tag.Category == "" {
			tag.Category = prototype.TagCategoryDB
		}
		out[i] = tag
	}
	return out
}

// Delete removes a persisted prototype. It fails with a permission error
// when the key is code-declared, when no persisted record exists, or when
// the supplied caller does not pass the stored "edit" lock. A nil caller
// skips the lock check.
func (s *Service) Delete(ctx context.Context, key string, caller lock.Subject) error {
	ctx, span := s.tracer.Start(ctx, "prototype.Delete")
	defer span.End()

	key = strings.ToLower(strings.TrimSpace(key))
	if s.library != nil && s.library.Has(key) {
		return fmt.Errorf("%s is a read-only prototype (defined as code in %s): %w",
			key, s.library.Source(key), prototype.ErrPermission)
	}
	existing, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("prototype %s was not found: %w", key, prototype.ErrPermission)
		}
		return fmt.Errorf("load prototype %s: %w", key, err)
	}
	if caller != nil && !s.locks.Check(caller, existing.Locks, "edit", false) {
		return fmt.Errorf("caller may not delete prototype %s: %w", key, prototype.ErrPermission)
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete prototype %s: %w", key, err)
	}
	return nil
}

// CheckPermission reports whether subject may perform action ("spawn" or
// "edit") on the named prototype. Code-declared prototypes never grant
// "edit". fallback applies when the prototype carries no lock string.
func (s *Service) CheckPermission(ctx context.Context, key string, subject lock.Subject, action string, fallback bool) bool {
	ctx, span := s.tracer.Start(ctx, "prototype.CheckPermission")
	defer span.End()

	key = strings.ToLower(strings.TrimSpace(key))
	if action == "edit" && s.library != nil && s.library.Has(key) {
		log.Printf("%s is a read-only prototype (defined as code in %s)", key, s.library.Source(key))
		return false
	}
	matches, err := s.Search(ctx, key, nil)
	if err != nil || len(matches) == 0 {
		log.Printf("prototype %s not found", key)
		return false
	}
	lockstring := matches[0].Locks
	if lockstring == "" {
		return fallback
	}
	return s.locks.Check(subject, lockstring, action, fallback)
}

// RecordSpawn tags a constructed entity with the prototype it was spawned
// from. It is a no-op without a spawn store.
func (s *Service) RecordSpawn(ctx context.Context, entityID, prototypeKey string) error {
	if s.spawns == nil {
		return nil
	}
	return s.spawns.RecordSpawn(ctx, entityID, prototypeKey)
}

// SpawnedFrom returns the IDs of entities spawned from exactly the given
// key.
func (s *Service) SpawnedFrom(ctx context.Context, prototypeKey string) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "prototype.SpawnedFrom")
	defer span.End()

	if s.spawns == nil {
		return nil, nil
	}
	return s.spawns.SpawnedFrom(ctx, prototypeKey)
}

// Pool returns every searchable prototype keyed by lower-cased key, the
// default parent pool for validation.
func (s *Service) Pool(ctx context.Context) (map[string]*prototype.Prototype, error) {
	matches, err := s.Search(ctx, "", nil)
	if err != nil {
		return nil, err
	}
	pool := make(map[string]*prototype.Prototype, len(matches))
	for i := range matches {
		proto := matches[i]
		pool[proto.Key] = &proto
	}
	return pool, nil
}

// Validate runs structural validation on proto against the full searchable
// namespace. asMixin relaxes the base-type requirement to a warning.
func (s *Service) Validate(ctx context.Context, proto *prototype.Prototype, asMixin bool) error {
	ctx, span := s.tracer.Start(ctx, "prototype.Validate")
	defer span.End()

	pool, err := s.Pool(ctx)
	if err != nil {
		return fmt.Errorf("resolve parent pool: %w", err)
	}
	if proto != nil && proto.Key != "" {
		// validate the supplied definition, not a stale pool copy
		pool[strings.ToLower(proto.Key)] = proto
	}
	return validate.Prototype(proto, validate.Config{
		Pool:        pool,
		Typeclasses: s.typeclasses,
		AsMixin:     asMixin,
	})
}

// Flattened resolves key to a single prototype, validates its chain, and
// returns the effective attribute set with all parents merged in.
func (s *Service) Flattened(ctx context.Context, key string) (prototype.Prototype, error) {
	ctx, span := s.tracer.Start(ctx, "prototype.Flattened")
	defer span.End()

	key = strings.ToLower(strings.TrimSpace(key))
	matches, err := s.Search(ctx, key, nil)
	if err != nil {
		return prototype.Prototype{}, err
	}
	var found *prototype.Prototype
	for i := range matches {
		if matches[i].Key == key {
			found = &matches[i]
			break
		}
	}
	if found == nil {
		return prototype.Prototype{}, fmt.Errorf("prototype %s: %w", key, storage.ErrNotFound)
	}
	pool, err := s.Pool(ctx)
	if err != nil {
		return prototype.Prototype{}, err
	}
	if err := validate.Prototype(found, validate.Config{
		Pool:        pool,
		Typeclasses: s.typeclasses,
	}); err != nil {
		var warning *validate.Warning
		if !errors.As(err, &warning) {
			return prototype.Prototype{}, err
		}
	}
	values := make(map[string]prototype.Prototype, len(pool))
	for poolKey, proto := range pool {
		values[poolKey] = *proto
	}
	return prototype.Flatten(*found, values), nil
}
