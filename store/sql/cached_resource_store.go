package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/hollyburn/indieauth-store/core"
)

const resourceCacheKeyPrefix = "indieauth-store::resource::v1"

// CachedResourceStore serves the read-mostly resource-server lookups on the
// token verification path from a cache, falling back to a short store
// transaction on miss. Upserts go straight through and invalidate the entry.
type CachedResourceStore struct {
	store DataStore
	cache repositorycache.CacheService
}

func NewCachedResourceStore(store DataStore, cacheService repositorycache.CacheService) (*CachedResourceStore, error) {
	if store == nil {
		return nil, fmt.Errorf("sqlstore: base data store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: resource cache service is required")
	}
	return &CachedResourceStore{store: store, cache: cacheService}, nil
}

// ResourceCacheKey is the deterministic cache key contract:
// indieauth-store::resource::v1::<resource_id> with the id path-escaped.
func ResourceCacheKey(resourceID string) (string, error) {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		return "", fmt.Errorf("sqlstore: resource id is required")
	}
	return resourceCacheKeyPrefix + "::" + url.PathEscape(resourceID), nil
}

// Get returns nil when the resource does not exist, mirroring ResourceGet.
func (s *CachedResourceStore) Get(ctx context.Context, resourceID string) (*core.Resource, error) {
	if s == nil || s.store == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached resource store is not configured")
	}
	cacheKey, err := ResourceCacheKey(resourceID)
	if err != nil {
		return nil, err
	}

	// Absence is cached as a zero value so unknown ids do not hammer the
	// backend.
	cached, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Resource, error) {
		var fetched *core.Resource
		txErr := s.store.Context(ctx, func(ctx context.Context, tx *Tx) error {
			var getErr error
			fetched, getErr = s.store.ResourceGet(ctx, tx, resourceID)
			return getErr
		})
		if txErr != nil {
			return core.Resource{}, txErr
		}
		if fetched == nil {
			return core.Resource{}, nil
		}
		return *fetched, nil
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cached.ResourceID) == "" {
		return nil, nil
	}
	out := cached
	return &out, nil
}

// Upsert writes through the base store and drops the cached entry.
func (s *CachedResourceStore) Upsert(ctx context.Context, resourceID string, secret string, description string) (string, error) {
	if s == nil || s.store == nil || s.cache == nil {
		return "", fmt.Errorf("sqlstore: cached resource store is not configured")
	}
	var effectiveID string
	err := s.store.Context(ctx, func(ctx context.Context, tx *Tx) error {
		var upsertErr error
		effectiveID, upsertErr = s.store.ResourceUpsert(ctx, tx, resourceID, secret, description)
		return upsertErr
	})
	if err != nil {
		return "", err
	}
	cacheKey, err := ResourceCacheKey(effectiveID)
	if err != nil {
		return "", err
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return "", err
	}
	return effectiveID, nil
}
