package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/pkg/redis"
)

// Store caches deep-analysis results keyed by ticker+date. The clock is
// injected so tests can control expiry; no global mutable state.
type Store interface {
	Get(ctx context.Context, ticker string, date time.Time) (*contracts.DeepAnalysisResult, bool)
	Put(ctx context.Context, result *contracts.DeepAnalysisResult)
}

// RedisStore backs the cache with the shared Redis client.
type RedisStore struct {
	cache *redis.Cache
	ttl   time.Duration
}

// NewRedisStore creates a Redis-backed result store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		cache: redis.NewCache(client, "meridian"),
		ttl:   ttl,
	}
}

func (s *RedisStore) Get(ctx context.Context, ticker string, date time.Time) (*contracts.DeepAnalysisResult, bool) {
	var result contracts.DeepAnalysisResult
	found, err := s.cache.Get(ctx, redis.DeepAnalysisKey(ticker, date), &result)
	if err != nil || !found {
		return nil, false
	}
	return &result, true
}

func (s *RedisStore) Put(ctx context.Context, result *contracts.DeepAnalysisResult) {
	// Best effort; a failed cache write never fails the caller
	_ = s.cache.Set(ctx, redis.DeepAnalysisKey(result.Ticker, result.Date), result, s.ttl)
}

// MemoryStore is an in-process store used in backtests and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	result   contracts.DeepAnalysisResult
	storedAt time.Time
}

// NewMemoryStore creates an in-memory store. now may be nil for wall clock.
func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]memoryEntry),
	}
}

func memoryKey(ticker string, date time.Time) string {
	return ticker + ":" + date.Format("2006-01-02")
}

func (s *MemoryStore) Get(_ context.Context, ticker string, date time.Time) (*contracts.DeepAnalysisResult, bool) {
	s.mu.RLock()
	entry, ok := s.entries[memoryKey(ticker, date)]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if s.ttl > 0 && s.now().Sub(entry.storedAt) > s.ttl {
		return nil, false
	}

	result := entry.result
	return &result, true
}

func (s *MemoryStore) Put(_ context.Context, result *contracts.DeepAnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[memoryKey(result.Ticker, result.Date)] = memoryEntry{
		result:   *result,
		storedAt: s.now(),
	}
}
