// Redis-backed persistence for per-symbol analysis context. When Redis is
// unavailable the store falls back to an in-memory cache so analysis
// continues without interruption.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"smc-analyst/internal/state"
)

const (
	// ContextKeyPrefix is the prefix for analysis context keys.
	// Format: analyst:context:{symbol}
	ContextKeyPrefix = "analyst:context"

	// ContextTTL is the TTL for context snapshots. Contexts refresh every
	// cycle while a symbol is tracked, so stale entries age out on their own.
	ContextTTL = 48 * time.Hour
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// RedisContextStore stores per-symbol context snapshots in Redis
// with an in-memory fallback cache when Redis is unavailable.
type RedisContextStore struct {
	client         *redis.Client
	inMemoryCache  map[string][]byte
	cacheMu        sync.RWMutex
	redisAvailable atomic.Bool
	logger         zerolog.Logger
}

// NewRedisContextStore creates a new RedisContextStore.
// If client is nil, the store operates in memory-only mode.
func NewRedisContextStore(client *redis.Client, logger zerolog.Logger) *RedisContextStore {
	s := &RedisContextStore{
		client:        client,
		inMemoryCache: make(map[string][]byte),
		logger:        logger.With().Str("component", "RedisContextStore").Logger(),
	}

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("Redis unavailable at startup, using in-memory cache")
			s.redisAvailable.Store(false)
		} else {
			s.logger.Info().Msg("Redis connected")
			s.redisAvailable.Store(true)
		}
	} else {
		s.logger.Info().Msg("no Redis client provided, using in-memory cache only")
		s.redisAvailable.Store(false)
	}

	return s
}

// contextKey generates the Redis key for a symbol's context snapshot
func (s *RedisContextStore) contextKey(symbol string) string {
	return fmt.Sprintf("%s:%s", ContextKeyPrefix, symbol)
}

// SaveContext persists a context snapshot, falling back to the in-memory
// cache when Redis is down.
func (s *RedisContextStore) SaveContext(ctx context.Context, sc *state.Context) error {
	if sc == nil {
		return fmt.Errorf("cannot save nil context")
	}

	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}

	s.cacheMu.Lock()
	s.inMemoryCache[sc.Symbol] = data
	s.cacheMu.Unlock()

	if s.client != nil && s.redisAvailable.Load() {
		if err := s.client.Set(ctx, s.contextKey(sc.Symbol), data, ContextTTL).Err(); err != nil {
			s.logger.Warn().Err(err).Str("symbol", sc.Symbol).Msg("Redis write failed, using in-memory cache")
			s.redisAvailable.Store(false)
		}
	}

	return nil
}

// LoadContext retrieves a context snapshot. Returns (nil, nil) when no
// snapshot exists for the symbol.
func (s *RedisContextStore) LoadContext(ctx context.Context, symbol string) (*state.Context, error) {
	if s.client != nil && s.redisAvailable.Load() {
		data, err := s.client.Get(ctx, s.contextKey(symbol)).Bytes()
		if err == nil {
			return unmarshalContext(data)
		}
		if err != redis.Nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Redis read failed, using in-memory cache")
			s.redisAvailable.Store(false)
		}
	}

	s.cacheMu.RLock()
	data, ok := s.inMemoryCache[symbol]
	s.cacheMu.RUnlock()
	if !ok {
		return nil, nil
	}
	return unmarshalContext(data)
}

// DeleteContext removes a symbol's snapshot from Redis and the cache
func (s *RedisContextStore) DeleteContext(ctx context.Context, symbol string) error {
	s.cacheMu.Lock()
	delete(s.inMemoryCache, symbol)
	s.cacheMu.Unlock()

	if s.client != nil && s.redisAvailable.Load() {
		if err := s.client.Del(ctx, s.contextKey(symbol)).Err(); err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Redis delete failed")
			s.redisAvailable.Store(false)
		}
	}
	return nil
}

// CheckRedisHealth re-pings Redis and updates availability
func (s *RedisContextStore) CheckRedisHealth(ctx context.Context) bool {
	if s.client == nil {
		return false
	}
	healthy := s.client.Ping(ctx).Err() == nil
	s.redisAvailable.Store(healthy)
	return healthy
}

func unmarshalContext(data []byte) (*state.Context, error) {
	var sc state.Context
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	return &sc, nil
}
