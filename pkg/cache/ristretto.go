package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// RistrettoCache is a Cache backed by Ristretto.
type RistrettoCache struct {
	cache  *ristretto.Cache
	logger *zap.Logger
}

// RistrettoConfig holds configuration for Ristretto cache.
type RistrettoConfig struct {
	NumCounters int64 // keys tracked for admission, ~10x max items
	MaxCost     int64 // max items, each snapshot costs 1
	BufferItems int64
	Logger      *zap.Logger
}

// NewRistrettoCache creates a new Ristretto-backed snapshot cache.
func NewRistrettoCache(cfg *RistrettoConfig) (*RistrettoCache, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}

	return &RistrettoCache{
		cache:  cache,
		logger: cfg.Logger,
	}, nil
}

// Get returns a live snapshot.
func (r *RistrettoCache) Get(kind Kind, id string) (interface{}, bool) {
	value, found := r.cache.Get(Key(kind, id))
	if found {
		HitsTotal.WithLabelValues(string(kind)).Inc()
	} else {
		MissesTotal.WithLabelValues(string(kind)).Inc()
	}
	return value, found
}

// Set stores a snapshot with a TTL.
func (r *RistrettoCache) Set(kind Kind, id string, value interface{}, ttl time.Duration) bool {
	ok := r.cache.SetWithTTL(Key(kind, id), value, 1, ttl)
	if ok {
		SetsTotal.WithLabelValues(string(kind)).Inc()
	} else {
		r.logger.Debug("cache-set-rejected",
			zap.String("kind", string(kind)),
			zap.String("id", id))
	}
	return ok
}

// Delete drops a snapshot.
func (r *RistrettoCache) Delete(kind Kind, id string) {
	r.cache.Del(Key(kind, id))
}

// Clear drops all snapshots.
func (r *RistrettoCache) Clear() {
	r.cache.Clear()
	r.logger.Info("snapshot-cache-cleared")
}

// Wait blocks until all pending writes have been applied.
func (r *RistrettoCache) Wait() {
	r.cache.Wait()
}

// Close releases resources.
func (r *RistrettoCache) Close() {
	r.cache.Close()
}

// Metrics returns Ristretto's internal metrics.
func (r *RistrettoCache) Metrics() *ristretto.Metrics {
	return r.cache.Metrics
}
