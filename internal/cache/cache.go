// Package cache 提供带 TTL 与容量上限的内存负载缓存
package cache

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/habitlog/internal/logging"
)

// Stats 汇总缓存运行指标
type Stats struct {
	Entries      int    `json:"entries"`
	Hits         uint64 `json:"hits"`
	Misses       uint64 `json:"misses"`
	Computations uint64 `json:"computations"`
	Generation   uint64 `json:"generation"`
	TTLSeconds   int64  `json:"ttl_seconds"`
	Capacity     int    `json:"capacity"`
}

// Cache 是按字符串键存放计算结果的 LRU 缓存
// 同一键的并发未命中只会触发一次计算；Invalidate 之前开始的计算结果不会写回
type Cache[T any] struct {
	store    *expirable.LRU[string, T]
	group    singleflight.Group
	ttl      time.Duration
	capacity int
	logger   *slog.Logger

	generation   atomic.Uint64
	hits         atomic.Uint64
	misses       atomic.Uint64
	computations atomic.Uint64
}

// New 创建缓存，size<=0 时容量为 1
func New[T any](size int, ttl time.Duration, logger *slog.Logger) *Cache[T] {
	if size <= 0 {
		size = 1
	}
	return &Cache[T]{
		store:    expirable.NewLRU[string, T](size, nil, ttl),
		ttl:      ttl,
		capacity: size,
		logger:   logging.Component(logger, logging.ComponentCache),
	}
}

// Get 返回未过期的缓存值
func (c *Cache[T]) Get(key string) (T, bool) {
	value, ok := c.store.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return value, ok
}

// GetOrCompute 命中时直接返回，否则调用 compute 计算并缓存结果
// compute 返回错误时不缓存
func (c *Cache[T]) GetOrCompute(key string, compute func() (T, error)) (T, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	gen := c.generation.Load()
	flightKey := fmt.Sprintf("%d/%s", gen, key)

	result, err, _ := c.group.Do(flightKey, func() (any, error) {
		c.computations.Add(1)
		c.logger.Debug("computing payload", logging.FieldCacheKey, key)

		value, err := compute()
		if err != nil {
			return value, err
		}
		if c.generation.Load() == gen {
			c.store.Add(key, value)
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// Invalidate 清空全部缓存；进行中的计算结果将被丢弃
func (c *Cache[T]) Invalidate() {
	c.generation.Add(1)
	c.store.Purge()
	c.logger.Debug("cache invalidated", "generation", c.generation.Load())
}

// Stats 返回当前指标快照
func (c *Cache[T]) Stats() Stats {
	return Stats{
		Entries:      c.store.Len(),
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Computations: c.computations.Load(),
		Generation:   c.generation.Load(),
		TTLSeconds:   int64(c.ttl / time.Second),
		Capacity:     c.capacity,
	}
}
