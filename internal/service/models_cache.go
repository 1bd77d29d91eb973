package service

import (
	"sync"
	"time"

	"github.com/set-night/mindchat/internal/domain"
)

// ModelsCache keeps the provider model list for ttl, indexed by ID.
type ModelsCache struct {
	mu       sync.RWMutex
	models   []domain.AIModel
	byID     map[string]int
	cachedAt time.Time
	ttl      time.Duration
	now      func() time.Time
}

func NewModelsCache(ttl time.Duration) *ModelsCache {
	return &ModelsCache{ttl: ttl, now: time.Now}
}

func (c *ModelsCache) fresh() bool {
	return c.models != nil && c.now().Sub(c.cachedAt) <= c.ttl
}

// Get returns the cached list, or nil once it has expired.
func (c *ModelsCache) Get() []domain.AIModel {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.fresh() {
		return nil
	}
	return c.models
}

// Lookup finds a model in a fresh cache.
func (c *ModelsCache) Lookup(id string) (domain.AIModel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.fresh() {
		return domain.AIModel{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return domain.AIModel{}, false
	}
	return c.models[i], true
}

func (c *ModelsCache) Set(models []domain.AIModel) {
	byID := make(map[string]int, len(models))
	for i, m := range models {
		byID[m.ID] = i
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = models
	c.byID = byID
	c.cachedAt = c.now()
}
