package local

import (
	"context"
	"sync"
	"time"

	"tandem/pkg/logger"
	"tandem/storage"
	"tandem/storage/cache"
)

const (
	keyProfiles = "local:tandem-profiles"
	keyRides    = "local:tandem-ride-store"
)

// Store keeps profiles and rides in device storage only. It is the offline variant: nothing
// leaves the machine and the ride list starts from sample data.
type Store struct {
	cache  cache.Cache
	log    logger.ILogger
	now    func() time.Time
	school string
	mu     sync.Mutex
}

func New(c cache.Cache, school string, log logger.ILogger) *Store {
	return &Store{cache: c, log: log, now: time.Now, school: school}
}

func (s *Store) Close() {}

func (s *Store) Profile() storage.IProfileStorage {
	return &profileRepo{s: s}
}

func (s *Store) Ride() storage.IRideStorage {
	return &rideRepo{s: s}
}

func (s *Store) load(ctx context.Context, key string, dst interface{}) (bool, error) {
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.log.Error("failed to read local store", logger.String("key", key), logger.Error(err))
	}
	return ok, err
}

func (s *Store) save(ctx context.Context, key string, v interface{}) error {
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.log.Error("failed to write local store", logger.String("key", key), logger.Error(err))
		return err
	}
	return nil
}
