package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/vietddude/authguard/internal/infra/storage"
)

// Store implements storage.KVStore on the kv_store table.
type Store struct {
	db *DB
}

// NewStore creates a new PostgreSQL key-value store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Health checks the underlying database.
func (s *Store) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}

func (s *Store) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.db.SelectContext(ctx, &keys, `SELECT key FROM kv_store ORDER BY key`); err != nil {
		return nil, storage.IOError("list keys", err)
	}
	return keys, nil
}

func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	query, args, err := deleteManyQuery(keys)
	if err != nil {
		return storage.IOError("build delete", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return storage.IOError("delete many", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM kv_store WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrKeyNotFound
	}
	if err != nil {
		return "", storage.IOError("get", err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return storage.IOError("set", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return storage.IOError("delete", err)
	}
	return nil
}

// deleteManyQuery expands keys into a postgres IN list.
func deleteManyQuery(keys []string) (string, []any, error) {
	query, args, err := sqlx.In(`DELETE FROM kv_store WHERE key IN (?)`, keys)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), args, nil
}
