package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"tandem/pkg/logger"
)

var keyReplacer = strings.NewReplacer(":", "_", "/", "_", "\\", "_", "..", "_")

type fileCache struct {
	dir string
	log logger.ILogger
	mu  sync.RWMutex
}

// NewFile stores one JSON file per key under dir.
func NewFile(dir string, log logger.ILogger) (Cache, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrapf(err, "create cache dir %s", dir)
	}
	return &fileCache{dir: dir, log: log}, nil
}

func (c *fileCache) path(key string) string {
	return filepath.Join(c.dir, keyReplacer.Replace(key)+".json")
}

func (c *fileCache) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, err := os.ReadFile(c.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "read cache key %s", key)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		c.log.Warning("dropping unreadable cache entry", logger.String("key", key), logger.Error(err))
		return false, nil
	}
	return true, nil
}

func (c *fileCache) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode cache key %s", key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return errors.Wrapf(err, "write cache key %s", key)
	}
	return os.Rename(tmp, c.path(key))
}

func (c *fileCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "delete cache key %s", key)
		}
	}
	return nil
}

func (c *fileCache) Close() error {
	return nil
}
