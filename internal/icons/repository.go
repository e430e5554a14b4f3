// Package icons reads the Event Icon Map stored at extra/icons (event name -> icon identifier).
package icons

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/PittChallenge/pittchallenge.com/internal/models"
	"github.com/PittChallenge/pittchallenge.com/pkg/docstore"
)

const cacheKey = "cache:extra:icons"

// Repository loads the icon map, optionally through a short-lived Redis cache.
type Repository struct {
	store  docstore.Store
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRepository creates an icon repository. cache may be nil; ttl <= 0 disables caching.
func NewRepository(store docstore.Store, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		cache = nil
	}
	return &Repository{store: store, cache: cache, ttl: ttl, logger: logger}
}

// All returns the icon map. A missing extra/icons document yields an empty map.
func (r *Repository) All(ctx context.Context) (map[string]string, error) {
	if r.cache != nil {
		raw, err := r.cache.Get(ctx, cacheKey).Bytes()
		switch {
		case err == nil:
			var m map[string]string
			if jsonErr := json.Unmarshal(raw, &m); jsonErr == nil {
				return m, nil
			}
		case !errors.Is(err, redis.Nil):
			r.logger.Warn("icon cache read failed", zap.Error(err))
		}
	}

	doc, err := docstore.Lookup(ctx, r.store, models.CollectionExtra, models.DocIcons)
	if err != nil {
		return nil, fmt.Errorf("load icons: %w", err)
	}
	m := map[string]string{}
	if doc != nil {
		for k, v := range doc.Fields {
			if s, ok := v.(string); ok && s != "" {
				m[k] = s
			}
		}
	}

	if r.cache != nil {
		if raw, err := json.Marshal(m); err == nil {
			if err := r.cache.Set(ctx, cacheKey, raw, r.ttl).Err(); err != nil {
				r.logger.Warn("icon cache write failed", zap.Error(err))
			}
		}
	}
	return m, nil
}

// Lookup returns the icon for event and whether the event is known.
func (r *Repository) Lookup(ctx context.Context, event string) (string, bool, error) {
	m, err := r.All(ctx)
	if err != nil {
		return "", false, err
	}
	icon, ok := m[event]
	return icon, ok, nil
}

// Replace overwrites the icon map and drops the cached copy. Event names are lower-cased and
// trimmed, as check-in requests are.
func (r *Repository) Replace(ctx context.Context, m map[string]string) error {
	fields := make(docstore.Fields, len(m))
	for k, v := range m {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || models.IsReservedEvent(k) {
			return fmt.Errorf("invalid event name %q", k)
		}
		fields[k] = v
	}
	if err := docstore.Set(ctx, r.store, models.CollectionExtra, models.DocIcons, fields); err != nil {
		return fmt.Errorf("save icons: %w", err)
	}
	if r.cache != nil {
		if err := r.cache.Del(ctx, cacheKey).Err(); err != nil {
			r.logger.Warn("icon cache invalidate failed", zap.Error(err))
		}
	}
	return nil
}
