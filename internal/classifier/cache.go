package classifier

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pageza/foodscan/backend/internal/types"
)

// loadTimeout bounds a single model load. Loads are detached from the
// triggering request so one cancelled caller does not fail the others.
const loadTimeout = 2 * time.Minute

// ModelCache owns the loaded models. Each model is loaded at most once at a
// time; a failed load is not remembered, so the next caller tries again.
type ModelCache struct {
	store  *CheckpointStore
	loader Loader
	logger *zap.Logger

	mu     sync.RWMutex
	models map[types.ModelID]Model
	group  singleflight.Group
}

// NewModelCache creates an empty cache.
func NewModelCache(store *CheckpointStore, loader Loader, logger *zap.Logger) *ModelCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelCache{
		store:  store,
		loader: loader,
		logger: logger,
		models: make(map[types.ModelID]Model),
	}
}

// GetOrLoad returns the cached model for id, loading it on first use.
func (c *ModelCache) GetOrLoad(ctx context.Context, id types.ModelID) (Model, error) {
	c.mu.RLock()
	m, ok := c.models[id]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}

	ch := c.group.DoChan(string(id), func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		c.mu.RLock()
		m, ok := c.models[id]
		c.mu.RUnlock()
		if ok {
			return m, nil
		}

		checkpoint, err := c.store.Resolve(ctx, id)
		if err != nil {
			return nil, err
		}
		m, err = c.loader.Load(ctx, id, checkpoint)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.models[id] = m
		c.mu.Unlock()
		c.logger.Info("model loaded", zap.String("model", string(id)))
		return m, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Model), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Loaded reports whether id is already in the cache.
func (c *ModelCache) Loaded(id types.ModelID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.models[id]
	return ok
}
