// Package catalog serves the institution catalog with a Redis cache in
// front of PostgreSQL. The catalog changes rarely and is read on every
// composer session, so a short TTL cache absorbs most of the load.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campusreach/campaign-studio/internal/audience"
)

const cacheKey = "catalog:institutions"

// Lister is the storage dependency: anything that can produce the full
// institution catalog.
type Lister interface {
	ListInstitutions(ctx context.Context) ([]audience.Institution, error)
}

// Service caches catalog reads. A nil Redis client degrades to DB-only
// reads; Redis errors are logged and treated as cache misses.
type Service struct {
	store Lister
	redis *redis.Client
	ttl   time.Duration
}

// New creates a catalog service. redisClient may be nil.
func New(store Lister, redisClient *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{store: store, redis: redisClient, ttl: ttl}
}

// Institutions returns the catalog, from cache when possible.
func (s *Service) Institutions(ctx context.Context) ([]audience.Institution, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var institutions []audience.Institution
			if err := json.Unmarshal(cached, &institutions); err == nil {
				return institutions, nil
			}
			// Unreadable cache entry: fall through and overwrite it.
			log.Printf("catalog: discarding unreadable cache entry")
		} else if err != redis.Nil {
			log.Printf("catalog: cache read failed: %v", err)
		}
	}

	institutions, err := s.store.ListInstitutions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	if s.redis != nil {
		if data, err := json.Marshal(institutions); err == nil {
			if err := s.redis.Set(ctx, cacheKey, data, s.ttl).Err(); err != nil {
				log.Printf("catalog: cache write failed: %v", err)
			}
		}
	}
	return institutions, nil
}

// Options derives the department/level choices for a selection directly
// from the (possibly cached) catalog.
func (s *Service) Options(ctx context.Context, institutionIDs []string) (audience.Options, error) {
	institutions, err := s.Institutions(ctx)
	if err != nil {
		return audience.Options{}, err
	}
	return audience.Resolve(institutionIDs, institutions), nil
}

// Invalidate drops the cached catalog, e.g. after an upsert.
func (s *Service) Invalidate(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKey).Err(); err != nil {
		log.Printf("catalog: cache invalidation failed: %v", err)
	}
}
