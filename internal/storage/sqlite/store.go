// Package sqlite provides the SQLite-backed prototype and spawn-audit store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/louisbranch/protoforge/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/protoforge/internal/prototype"
	"github.com/louisbranch/protoforge/internal/storage"
	"github.com/louisbranch/protoforge/internal/storage/sqlite/migrations"
)

// Store implements storage.PrototypeStore and storage.SpawnStore on SQLite.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time
}

// Open opens (and migrates) a prototype store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.PrototypesFS, "prototypes"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, clock: time.Now}, nil
}

// Close closes the underlying SQLite database.
//
// Close is nil-safe so callers can defer it in all startup paths.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Put implements storage.PrototypeStore. The record, including its tag rows,
// is replaced in one transaction.
func (s *Store) Put(ctx context.Context, proto prototype.Prototype) error {
	proto = proto.Normalize()
	if proto.Key == "" {
		return fmt.Errorf("prototype key is required")
	}
	payload, err := json.Marshal(proto.ToMap())
	if err != nil {
		return fmt.Errorf("encode prototype %s: %w", proto.Key, err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO prototypes (key, description, locks, data, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    description = excluded.description,
    locks = excluded.locks,
    data = excluded.data,
    updated_at = excluded.updated_at
`, proto.Key, proto.Desc, proto.Locks, string(payload), s.clock().UTC().UnixMilli()); err != nil {
		return fmt.Errorf("upsert prototype %s: %w", proto.Key, err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM prototype_tags WHERE prototype_key = ?", proto.Key); err != nil {
		return fmt.Errorf("clear tags for %s: %w", proto.Key, err)
	}
	for _, tag := range proto.Tags {
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO prototype_tags (prototype_key, name, category)
VALUES (?, ?, ?)`, proto.Key, tag.Name, tag.Category); err != nil {
			return fmt.Errorf("store tag %s for %s: %w", tag.Name, proto.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put %s: %w", proto.Key, err)
	}
	return nil
}

// Get implements storage.PrototypeStore.
func (s *Store) Get(ctx context.Context, key string) (prototype.Prototype, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT data FROM prototypes WHERE key = ?", key)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return prototype.Prototype{}, storage.ErrNotFound
		}
		return prototype.Prototype{}, fmt.Errorf("load prototype %s: %w", key, err)
	}
	return decode(key, payload)
}

// Delete implements storage.PrototypeStore.
func (s *Store) Delete(ctx context.Context, key string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, "DELETE FROM prototypes WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("delete prototype %s: %w", key, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete prototype %s: %w", key, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM prototype_tags WHERE prototype_key = ?", key); err != nil {
		return fmt.Errorf("delete tags for %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete %s: %w", key, err)
	}
	return nil
}

// Search implements storage.PrototypeStore.
func (s *Store) Search(ctx context.Context, key string, tags []prototype.Tag) ([]prototype.Prototype, error) {
	query := "SELECT key, data FROM prototypes"
	var args []any
	if len(tags) > 0 {
		conditions := make([]string, len(tags))
		for i, tag := range tags {
			conditions[i] = "(name = ? AND category = ?)"
			args = append(args, tag.Name, tag.Category)
		}
		query += ` WHERE key IN (
    SELECT prototype_key FROM prototype_tags WHERE ` + strings.Join(conditions, " OR ") + ")"
	}
	query += " ORDER BY key"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search prototypes: %w", err)
	}
	defer rows.Close()

	var pool []prototype.Prototype
	for rows.Next() {
		var rowKey, payload string
		if err := rows.Scan(&rowKey, &payload); err != nil {
			return nil, fmt.Errorf("scan prototype row: %w", err)
		}
		proto, err := decode(rowKey, payload)
		if err != nil {
			return nil, err
		}
		pool = append(pool, proto)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prototype rows: %w", err)
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

// RecordSpawn implements storage.SpawnStore.
func (s *Store) RecordSpawn(ctx context.Context, entityID, prototypeKey string) error {
	prototypeKey = strings.ToLower(strings.TrimSpace(prototypeKey))
	if entityID == "" || prototypeKey == "" {
		return fmt.Errorf("entity id and prototype key are required")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT OR IGNORE INTO spawned_entities (entity_id, prototype_key, spawned_at)
VALUES (?, ?, ?)`, entityID, prototypeKey, s.clock().UTC().UnixMilli()); err != nil {
		return fmt.Errorf("record spawn of %s: %w", entityID, err)
	}
	return nil
}

// SpawnedFrom implements storage.SpawnStore.
func (s *Store) SpawnedFrom(ctx context.Context, prototypeKey string) ([]string, error) {
	prototypeKey = strings.ToLower(strings.TrimSpace(prototypeKey))
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT entity_id FROM spawned_entities WHERE prototype_key = ? ORDER BY spawned_at, entity_id`,
		prototypeKey)
	if err != nil {
		return nil, fmt.Errorf("load spawns for %s: %w", prototypeKey, err)
	}
	defer rows.Close()

	var entityIDs []string
	for rows.Next() {
		var entityID string
		if err := rows.Scan(&entityID); err != nil {
			return nil, fmt.Errorf("scan spawn row: %w", err)
		}
		entityIDs = append(entityIDs, entityID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spawn rows: %w", err)
	}
	return entityIDs, nil
}

func decode(key, payload string) (prototype.Prototype, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return prototype.Prototype{}, fmt.Errorf("decode prototype %s: %w", key, err)
	}
	proto, err := prototype.FromMap(raw)
	if err != nil {
		return prototype.Prototype{}, fmt.Errorf("decode prototype %s: %w", key, err)
	}
	if proto.Key == "" {
		proto.Key = key
	}
	return proto, nil
}
