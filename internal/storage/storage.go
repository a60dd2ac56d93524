// Package storage declares the persistence seams for editable prototypes and
// the spawn audit trail. Backends must provide atomic read-modify-write for a
// single prototype record; cross-record transactions are not assumed.
package storage

import (
	"context"
	"errors"

	"github.com/louisbranch/protoforge/internal/prototype"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// PrototypeStore persists editable prototypes keyed by lower-cased
// prototype key.
type PrototypeStore interface {
	// Put stores proto under its key, replacing any existing record in one
	// atomic write.
	Put(ctx context.Context, proto prototype.Prototype) error
	// Get returns the prototype stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (prototype.Prototype, error)
	// Delete removes the record under key or returns ErrNotFound.
	Delete(ctx context.Context, key string) error
	// Search filters stored prototypes. A tag filter requires an exact
	// name+category match. A key filter tries an exact match first and
	// falls back to substring matching only when the exact filter yields
	// nothing. Empty filters return everything.
	Search(ctx context.Context, key string, tags []prototype.Tag) ([]prototype.Prototype, error)
}

// SpawnStore records which prototype each constructed entity was spawned
// from, for exact-key reverse lookup.
type SpawnStore interface {
	RecordSpawn(ctx context.Context, entityID, prototypeKey string) error
	// SpawnedFrom returns the IDs of entities spawned from exactly
	// prototypeKey. No fuzzy fallback: this is an audit path.
	SpawnedFrom(ctx context.Context, prototypeKey string) ([]string, error)
}
