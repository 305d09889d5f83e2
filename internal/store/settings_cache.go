package store

import (
	"context"
	"sync"

	"citywords/entity"
)

// SettingsCache is the lazily-loaded, cached GameSettings singleton (§9
// "Singleton GameSettings"): fetched once when a Worker process starts,
// refreshed on any write, never hit again per-turn.
type SettingsCache struct {
	store *Store
	mu    sync.RWMutex
	value entity.GameSettings
}

func NewSettingsCache(s *Store) *SettingsCache {
	return &SettingsCache{store: s}
}

// Load fetches (and lazily creates, via Store.GetSettings) the singleton
// row once, seeding it from defaults if absent.
func (c *SettingsCache) Load(ctx context.Context, defaults entity.GameSettings) error {
	g, err := c.store.GetSettings(ctx, defaults)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.value = *g
	c.mu.Unlock()
	return nil
}

func (c *SettingsCache) Get() entity.GameSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Refresh persists a new settings value and updates the cache.
func (c *SettingsCache) Refresh(ctx context.Context, g entity.GameSettings) error {
	if err := c.store.UpdateSettings(ctx, g); err != nil {
		return err
	}
	c.mu.Lock()
	c.value = g
	c.mu.Unlock()
	return nil
}
