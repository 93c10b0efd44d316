package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playgauntlet/backend/internal/match"
)

func cacheKey(matchID string) string {
	return "match:" + matchID + ":state"
}

// CacheGet reads the cached runtime state. A nil client or absent key is a
// plain cache miss.
func (s *Store) CacheGet(ctx context.Context, matchID string) ([]byte, error) {
	if s.rdb == nil {
		return nil, match.ErrCacheMiss
	}
	data, err := s.rdb.Get(ctx, cacheKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, match.ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// CacheSet writes the cached runtime state with a TTL. Best effort: a nil
// client is a no-op.
func (s *Store) CacheSet(ctx context.Context, matchID string, state []byte, ttl time.Duration) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.SetEx(ctx, cacheKey(matchID), state, ttl).Err()
}
