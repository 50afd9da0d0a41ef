package storage

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/trainer"
)

// DefaultCacheSize is the number of predictors kept in memory.
const DefaultCacheSize = 32

// Loader returns serialized artifacts by ID.
type Loader interface {
	Load(ctx context.Context, id string) ([]byte, error)
}

// PredictorCache rebuilds predictors from stored artifacts on first use and
// keeps the most recently used ones.
type PredictorCache struct {
	loader Loader
	cache  *lru.Cache[string, *trainer.Predictor]
}

// NewPredictorCache creates a cache of at most size predictors.
func NewPredictorCache(loader Loader, size int) (*PredictorCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *trainer.Predictor](size)
	if err != nil {
		return nil, errors.Wrap(err, "create predictor cache")
	}
	return &PredictorCache{loader: loader, cache: c}, nil
}

// Get returns the predictor for id, reconstructing it if it is not cached.
func (c *PredictorCache) Get(ctx context.Context, id string) (*trainer.Predictor, error) {
	if p, ok := c.cache.Get(id); ok {
		return p, nil
	}
	data, err := c.loader.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := trainer.Reconstruct(data)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, p)
	return p, nil
}

// Invalidate drops id from the cache.
func (c *PredictorCache) Invalidate(id string) {
	c.cache.Remove(id)
}

// Len returns the number of cached predictors.
func (c *PredictorCache) Len() int {
	return c.cache.Len()
}
