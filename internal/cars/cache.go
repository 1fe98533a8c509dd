package cars

import (
	"context"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hristiyandudev55/nurblifebg/internal/domain/car"
	"github.com/hristiyandudev55/nurblifebg/internal/metrics"
)

// Loader is the source of truth behind the cache.
type Loader interface {
	Get(ctx context.Context, id uuid.UUID) (car.Car, error)
}

// Cache is a bounded read-through car lookup keyed by id.
// Every write to a car must call Invalidate for that id.
type Cache struct {
	lru *lru.Cache[uuid.UUID, car.Car]
	src Loader

	// gen advances on every Invalidate. A load that started under an older
	// generation may have read the pre-write row and is not stored.
	mu  sync.Mutex
	gen uint64
}

func NewCache(src Loader, size int) (*Cache, error) {
	l, err := lru.New[uuid.UUID, car.Car](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l, src: src}, nil
}

// Get returns the cached car or loads it. Load errors are not cached.
func (c *Cache) Get(ctx context.Context, id uuid.UUID) (car.Car, error) {
	if v, ok := c.lru.Get(id); ok {
		metrics.CarCacheLookups.WithLabelValues("hit").Inc()
		return v, nil
	}
	metrics.CarCacheLookups.WithLabelValues("miss").Inc()

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	v, err := c.src.Get(ctx, id)
	if err != nil {
		return car.Car{}, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.lru.Add(id, v)
	}
	c.mu.Unlock()
	return v, nil
}

func (c *Cache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	c.gen++
	c.lru.Remove(id)
	c.mu.Unlock()
}
