package filediff

import (
	"context"
	"time"

	"github.com/golang/groupcache/singleflight"

	"filediff/internal/cache"
	"filediff/internal/logging"
	"filediff/internal/metrics"
)

// DefaultMaxWeight bounds the in-memory cache when no other limit is given.
const DefaultMaxWeight = 10 << 20

// CacheOptions configure a Cache. Zero values select the defaults.
type CacheOptions struct {
	MaxWeight int64
	// Store keeps encoded outputs across processes. Nil disables it.
	Store   cache.Store
	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

// Cache serves FileDiffOutputs from memory, then from the durable store, and
// computes the rest with its Loader.
type Cache struct {
	loader  *Loader
	entries *cache.Weighted[Key, FileDiffOutput]
	store   cache.Store
	flight  singleflight.Group
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewCache returns a Cache computing misses with loader.
func NewCache(loader *Loader, opts CacheOptions) *Cache {
	if opts.MaxWeight <= 0 {
		opts.MaxWeight = DefaultMaxWeight
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = loader.metrics
	}
	return &Cache{
		loader: loader,
		entries: cache.NewWeighted(opts.MaxWeight, func(k Key, o FileDiffOutput) int64 {
			return k.Weight() + o.Weight()
		}),
		store:   opts.Store,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Get returns the output for key. Concurrent calls for the same key share
// one load.
func (c *Cache) Get(ctx context.Context, key Key) (FileDiffOutput, error) {
	v, err := c.flight.Do(StoreKey(key), func() (interface{}, error) {
		outs, err := c.GetAll(ctx, []Key{key})
		if err != nil {
			return nil, err
		}
		return outs[key], nil
	})
	if err != nil {
		return FileDiffOutput{}, err
	}
	return v.(FileDiffOutput), nil
}

// GetAll returns the outputs of all keys, or a *NotAvailableError if any of
// them could not be computed.
func (c *Cache) GetAll(ctx context.Context, keys []Key) (map[Key]FileDiffOutput, error) {
	result := make(map[Key]FileDiffOutput, len(keys))
	seen := make(map[Key]bool, len(keys))
	var misses []Key
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		if out, ok := c.lookup(ctx, k); ok {
			result[k] = out
			continue
		}
		misses = append(misses, k)
	}
	if len(misses) == 0 {
		return result, nil
	}

	start := time.Now()
	loaded, err := c.loader.Load(ctx, misses)
	c.metrics.ObserveLoad(start)
	if err != nil {
		c.metrics.Failures.Inc()
		return nil, &NotAvailableError{Missing: misses, Cause: err}
	}

	var missing []Key
	for _, k := range misses {
		out, ok := loaded[k]
		if !ok {
			missing = append(missing, k)
			continue
		}
		c.entries.Add(k, out)
		c.persist(ctx, k, out)
		result[k] = out
	}
	if len(missing) > 0 {
		c.metrics.Failures.Inc()
		return nil, &NotAvailableError{Missing: missing}
	}
	return result, nil
}

// Len returns the number of outputs held in memory.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) lookup(ctx context.Context, k Key) (FileDiffOutput, bool) {
	if out, ok := c.entries.Get(k); ok {
		c.metrics.Lookup(metrics.ResultHit)
		return out, true
	}
	if c.store != nil {
		data, ok, err := c.store.Get(ctx, StoreKey(k))
		if err != nil {
			c.logger.WarnErr("durable store read failed", err, map[string]any{"key": k.String()})
		}
		if ok {
			out, err := DecodeOutput(data)
			if err == nil {
				c.metrics.Lookup(metrics.ResultStoreHit)
				c.entries.Add(k, out)
				return out, true
			}
			c.logger.WarnErr("discarding undecodable stored output", err, map[string]any{"key": k.String()})
		}
	}
	c.metrics.Lookup(metrics.ResultMiss)
	return FileDiffOutput{}, false
}

func (c *Cache) persist(ctx context.Context, k Key, out FileDiffOutput) {
	if c.store == nil {
		return
	}
	if err := c.store.Set(ctx, StoreKey(k), EncodeOutput(out)); err != nil {
		c.logger.WarnErr("durable store write failed", err, map[string]any{"key": k.String()})
	}
}
