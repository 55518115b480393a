package service

import (
	"context"
	"sync"

	"tandem/pkg/logger"
	"tandem/storage"
	"tandem/storage/cache"
)

const publicDevice = "public"

// IServiceManager hands out one App per device and serves the anonymous ride listing.
type IServiceManager interface {
	App(ctx context.Context, device string) *App
	PublicRides(ctx context.Context) storage.RidesResult
	Close()
}

type service struct {
	deps Deps
	log  logger.ILogger

	mu   sync.Mutex
	apps map[string]*App
}

func New(deps Deps) IServiceManager {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return &service{
		deps: deps,
		log:  deps.Log,
		apps: make(map[string]*App),
	}
}

// App returns the device's App, creating and bootstrapping it on first use.
func (s *service) App(ctx context.Context, device string) *App {
	s.mu.Lock()
	app, ok := s.apps[device]
	if !ok {
		app = NewApp(device, s.deps)
		s.apps[device] = app
		s.log.Debug("new device app", logger.String("device", device))
	}
	s.mu.Unlock()

	app.EnsureBootstrapped(ctx)
	return app
}

func (s *service) PublicRides(ctx context.Context) storage.RidesResult {
	stg := s.deps.Storage(storage.Anonymous)
	return storage.ListRides(ctx, stg.Ride(), s.deps.Cache, cache.DeviceKey(publicDevice, cache.KeyRides), s.log)
}

func (s *service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for device, app := range s.apps {
		app.Close()
		delete(s.apps, device)
	}
}
