package cache

import (
	"context"
	"fmt"

	"tandem/config"
	"tandem/pkg/logger"
)

const (
	KeyUser    = "tandem-user"
	KeySession = "tandem-session"
	KeyRides   = "tandem-rides"
)

// Cache is device storage: small JSON documents under string keys.
type Cache interface {
	// Get decodes the value stored under key into dst and reports whether it existed.
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// DeviceKey scopes key to one device (a chat, a terminal).
func DeviceKey(device, key string) string {
	return fmt.Sprintf("%s:%s", device, key)
}

func New(ctx context.Context, cfg config.Config, log logger.ILogger) (Cache, error) {
	switch cfg.CacheDriver {
	case config.CacheRedis:
		return NewRedis(ctx, cfg, log)
	case config.CacheFile, "":
		return NewFile(cfg.CacheDir, log)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.CacheDriver)
	}
}
