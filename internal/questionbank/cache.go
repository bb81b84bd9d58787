package questionbank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/examrunner/internal/config"
	"github.com/stemsi/examrunner/internal/model"
)

// CachedSource keeps question set payloads in Redis in front of another Source.
// Redis failures never fail a load; they fall through to the inner source.
type CachedSource struct {
	inner Source
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedSource wraps inner with a Redis cache.
func NewCachedSource(inner Source, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedSource {
	return &CachedSource{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
		log:   log.With().Str("component", "question_cache").Logger(),
	}
}

// Load returns the cached set or loads it from the inner source and
// writes it back.
func (s *CachedSource) Load(ctx context.Context, setID string) (*model.QuestionSet, error) {
	if !ValidSetID(setID) {
		return nil, ErrSetNotFound
	}
	key := config.CacheKey.QuestionSetPayloadKey(setID)

	raw, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var set model.QuestionSet
		if jsonErr := json.Unmarshal(raw, &set); jsonErr == nil {
			return &set, nil
		}
		s.log.Warn().Str("set_id", setID).Msg("Corrupt cached payload, reloading")
	case errors.Is(err, redis.Nil):
		// Cache miss.
	default:
		s.log.Warn().Err(err).Str("set_id", setID).Msg("Redis read failed, using source")
		return s.inner.Load(ctx, setID)
	}

	set, err := s.inner.Load(ctx, setID)
	if err != nil {
		return nil, err
	}

	if err := s.store(ctx, set); err != nil {
		s.log.Warn().Err(err).Str("set_id", setID).Msg("Failed to cache question set")
	}
	return set, nil
}

// Warm loads a set from the inner source and refreshes the cache entry.
func (s *CachedSource) Warm(ctx context.Context, setID string) error {
	set, err := s.inner.Load(ctx, setID)
	if err != nil {
		return fmt.Errorf("load %s: %w", setID, err)
	}
	if err := s.store(ctx, set); err != nil {
		return fmt.Errorf("cache %s: %w", setID, err)
	}
	s.log.Info().
		Str("set_id", setID).
		Int("questions", set.Len()).
		Msg("Question set cached")
	return nil
}

// Invalidate drops the cached payload for setID.
func (s *CachedSource) Invalidate(ctx context.Context, setID string) error {
	return s.rdb.Del(ctx, config.CacheKey.QuestionSetPayloadKey(setID)).Err()
}

func (s *CachedSource) store(ctx context.Context, set *model.QuestionSet) error {
	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return s.rdb.Set(ctx, config.CacheKey.QuestionSetPayloadKey(set.ID), payload, s.ttl).Err()
}
