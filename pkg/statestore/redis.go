package statestore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis key prefix for gateway tables
const tableKeyPrefix = "aigw:table:"

// RedisStore implements Store on a Redis hash per table. Useful when several
// gateway instances need to share the lease and restricted-IP tables.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(table string) string {
	return tableKeyPrefix + table
}

// Read implements Store. A missing hash reads as an empty table.
func (s *RedisStore) Read(ctx context.Context, table string) (Table, error) {
	fields, err := s.client.HGetAll(ctx, s.key(table)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", table, err)
	}

	rows := make(Table, len(fields))
	for k, v := range fields {
		rows[k] = []byte(v)
	}
	return rows, nil
}

// Write implements Store. The hash is replaced atomically via a pipeline so
// readers never observe a half-written table.
func (s *RedisStore) Write(ctx context.Context, table string, rows Table) error {
	key := s.key(table)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(rows) > 0 {
		fields := make(map[string]any, len(rows))
		for k, v := range rows {
			fields[k] = string(v)
		}
		pipe.HSet(ctx, key, fields)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write table %s: %w", table, err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
