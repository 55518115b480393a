package storage

import (
	"context"

	"tandem/pkg/logger"
	"tandem/pkg/metrics"
	"tandem/pkg/models"
	"tandem/storage/cache"
)

// ListRides loads every ride, newest first. A backend success refreshes the device copy under
// cacheKey; a failure falls back to that copy when there is one and to an empty list otherwise.
// It never returns an error on its own: RidesResult.Err carries the backend failure.
func ListRides(ctx context.Context, rides IRideStorage, c cache.Cache, cacheKey string, log logger.ILogger) RidesResult {
	list, err := rides.GetAll(ctx)
	if err == nil {
		if list == nil {
			list = make([]*models.Ride, 0)
		}
		if c != nil {
			if cerr := c.Set(ctx, cacheKey, list); cerr != nil {
				log.Warning("failed to cache rides", logger.Error(cerr))
			}
		}
		return RidesResult{Rides: list, Source: SourceBackend}
	}

	log.Warning("ride listing failed, trying device copy", logger.Error(err))
	if c != nil {
		var cached []*models.Ride
		ok, cerr := c.Get(ctx, cacheKey, &cached)
		if cerr != nil {
			log.Warning("failed to read cached rides", logger.Error(cerr))
		}
		if ok && cached != nil {
			metrics.CacheFallbacks.Inc()
			return RidesResult{Rides: cached, Source: SourceCache, Err: err}
		}
	}
	return RidesResult{Rides: make([]*models.Ride, 0), Source: SourceEmpty, Err: err}
}
