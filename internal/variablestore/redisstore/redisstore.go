// Package redisstore is a Redis-backed tavernkit.VariableStore, letting the
// {{getvar}}/{{setvar}} macro family and the lore engine's timed-effects
// ledger survive across process restarts and be shared by multiple hosts.
// Grounded on the teacher's internal/skills.RedisSkillsCache (connect with
// a ping, namespaced keys, SCAN-based bulk ops, zerolog on degraded paths).
package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Store implements tavernkit.VariableStore against a Redis keyspace,
// namespaced under prefix so multiple builds (or a global + per-user store)
// can share one Redis instance.
type Store struct {
	client redis.UniversalClient
	ctx    context.Context
	prefix string
}

// Config mirrors the teacher's RedisConfig shape (addr/password/db/tls).
type Config struct {
	Addr                  string
	Password              string
	DB                    int
	TLSInsecureSkipVerify bool
}

// New dials Redis and verifies connectivity with a Ping, namespacing all
// keys under prefix (e.g. "tavernkit:vars:<session-id>").
func New(ctx context.Context, cfg Config, prefix string) (*Store, error) {
	opts := &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return &Store{client: client, ctx: ctx, prefix: prefix}, nil
}

func (s *Store) key(k string) string {
	return s.prefix + ":" + k
}

// Get implements tavernkit.VariableStore.
func (s *Store) Get(key string) (string, bool) {
	val, err := s.client.Get(s.ctx, s.key(key)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("redisstore_get_error")
		}
		return "", false
	}
	return val, true
}

// Set implements tavernkit.VariableStore.
func (s *Store) Set(key, value string) {
	if err := s.client.Set(s.ctx, s.key(key), value, 0).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("redisstore_set_error")
	}
}

// Delete implements tavernkit.VariableStore.
func (s *Store) Delete(key string) {
	if err := s.client.Del(s.ctx, s.key(key)).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("redisstore_delete_error")
	}
}

// Each implements tavernkit.VariableStore by scanning the namespaced
// keyspace. Order is not guaranteed, matching the interface's contract.
func (s *Store) Each(fn func(key, value string)) {
	pattern := s.prefix + ":*"
	iter := s.client.Scan(s.ctx, 0, pattern, 100).Iterator()
	for iter.Next(s.ctx) {
		full := iter.Val()
		val, err := s.client.Get(s.ctx, full).Result()
		if err != nil {
			continue
		}
		fn(full[len(s.prefix)+1:], val)
	}
}

// Size implements tavernkit.VariableStore by counting keys under prefix.
func (s *Store) Size() int {
	n := 0
	s.Each(func(string, string) { n++ })
	return n
}

// Clear implements tavernkit.VariableStore by deleting every key under
// prefix.
func (s *Store) Clear() {
	pattern := s.prefix + ":*"
	iter := s.client.Scan(s.ctx, 0, pattern, 100).Iterator()
	for iter.Next(s.ctx) {
		if err := s.client.Del(s.ctx, iter.Val()).Err(); err != nil {
			log.Debug().Err(err).Str("key", iter.Val()).Msg("redisstore_clear_error")
		}
	}
}

// Close releases the underlying Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
