package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"meetup-workers/internal/common/logger"
	"meetup-workers/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "geocode:"

// CachedGeocoder fronts another geocoder with a Redis TTL cache. Cache
// failures are logged and bypassed.
type CachedGeocoder struct {
	next   Geocoder
	rdb    redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedGeocoder(next Geocoder, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedGeocoder {
	return &CachedGeocoder{next: next, rdb: rdb, ttl: ttl, logger: log}
}

func cacheKey(text string) string {
	return cacheKeyPrefix + Normalize(text)
}

func (g *CachedGeocoder) Resolve(ctx context.Context, text string) (*Result, error) {
	key := cacheKey(text)

	raw, err := g.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var res Result
		if jsonErr := json.Unmarshal(raw, &res); jsonErr == nil {
			metrics.GeocodeCacheLookups.WithLabelValues("hit").Inc()
			return &res, nil
		}
		metrics.GeocodeCacheLookups.WithLabelValues("corrupt").Inc()
	case errors.Is(err, redis.Nil):
		metrics.GeocodeCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.GeocodeCacheLookups.WithLabelValues("error").Inc()
		g.logger.Warn("geocode cache read failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	res, err := g.next.Resolve(ctx, text)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(res); err == nil {
		if err := g.rdb.Set(ctx, key, payload, g.ttl).Err(); err != nil {
			g.logger.Warn("geocode cache write failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
	return res, nil
}
