package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
	"github.com/prohmpiriya/sport-slots-booker/pkg/logger"
	pkgredis "github.com/prohmpiriya/sport-slots-booker/pkg/redis"
)

const (
	catalogVenueKeyPrefix = "catalog:venue:"
	catalogSportKeyPrefix = "catalog:sport:"
	catalogRulesKeyPrefix = "catalog:rules:"

	DefaultCatalogCacheTTL = 5 * time.Minute
)

// JSONCache is the subset of pkg/redis.Client used for read-through caching
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedCatalogRepository is a read-through cache in front of a CatalogRepository.
// Concurrent misses for the same key share one storage read. Cache failures
// are logged and fall through to storage. Not-found results are not cached.
type CachedCatalogRepository struct {
	next  CatalogRepository
	cache JSONCache
	ttl   time.Duration
	group singleflight.Group
	log   *logger.Logger
}

// NewCachedCatalogRepository wraps next with cache
func NewCachedCatalogRepository(next CatalogRepository, cache JSONCache, ttl time.Duration, log *logger.Logger) *CachedCatalogRepository {
	if ttl <= 0 {
		ttl = DefaultCatalogCacheTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CachedCatalogRepository{next: next, cache: cache, ttl: ttl, log: log}
}

// GetVenue retrieves a venue, preferring the cache
func (r *CachedCatalogRepository) GetVenue(ctx context.Context, id string) (*domain.Venue, error) {
	var venue domain.Venue
	err := r.readThrough(ctx, catalogVenueKeyPrefix+id, &venue, func(ctx context.Context) (interface{}, error) {
		return r.next.GetVenue(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &venue, nil
}

// GetSport retrieves a sport, preferring the cache
func (r *CachedCatalogRepository) GetSport(ctx context.Context, id string) (*domain.Sport, error) {
	var sport domain.Sport
	err := r.readThrough(ctx, catalogSportKeyPrefix+id, &sport, func(ctx context.Context) (interface{}, error) {
		return r.next.GetSport(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &sport, nil
}

// ListPricingRules retrieves a venue's pricing rules, preferring the cache
func (r *CachedCatalogRepository) ListPricingRules(ctx context.Context, venueID string) ([]domain.PricingRule, error) {
	var rules []domain.PricingRule
	err := r.readThrough(ctx, catalogRulesKeyPrefix+venueID, &rules, func(ctx context.Context) (interface{}, error) {
		return r.next.ListPricingRules(ctx, venueID)
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *CachedCatalogRepository) readThrough(ctx context.Context, key string, dest interface{}, load func(context.Context) (interface{}, error)) error {
	err := r.cache.GetJSON(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pkgredis.ErrCacheMiss) {
		r.log.Warn("Catalog cache read failed", zap.String("key", key), zap.Error(err))
	}

	value, err, _ := r.group.Do(key, func() (interface{}, error) {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := r.cache.SetJSON(ctx, key, value, r.ttl); err != nil {
			r.log.Warn("Catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
		return value, nil
	})
	if err != nil {
		return err
	}

	return copyInto(value, dest)
}

func copyInto(value, dest interface{}) error {
	switch d := dest.(type) {
	case *domain.Venue:
		*d = *value.(*domain.Venue)
	case *domain.Sport:
		*d = *value.(*domain.Sport)
	case *[]domain.PricingRule:
		*d = append([]domain.PricingRule(nil), value.([]domain.PricingRule)...)
	default:
		return errors.New("unsupported catalog cache target")
	}
	return nil
}
