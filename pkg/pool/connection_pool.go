// SPDX-License-Identifier: Apache-2.0

// Package pool provides a keyed pool of reusable scratch objects: a caller
// checks an object out by key, checks it back in when it is done, and the
// next checkout of the same key reuses it. cmd/timelined keys one per
// resource ID around each WebSocket watch connection; the mutation
// coordinator (C7) does not use this package.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/availdb/timelinedb/pkg/logging"
)

// ScratchPool manages a set of reusable scratch objects keyed by resource
// ID.
type ScratchPool struct {
	mu      sync.RWMutex
	objects map[string]*pooledObject
	config  *PoolConfig
	logger  logging.Logger
}

// pooledObject wraps a reusable scratch value with usage statistics.
type pooledObject struct {
	value    any
	created  time.Time
	lastUsed time.Time
	useCount int64
	inUse    bool
}

// PoolConfig holds configuration for a ScratchPool.
type PoolConfig struct {
	// MaxEntries caps the number of distinct keys held at once; eviction
	// of the least-recently-used entry occurs beyond this bound.
	MaxEntries int

	// IdleTimeout is how long an unused entry survives before Cleanup
	// reclaims it.
	IdleTimeout time.Duration
}

// DefaultPoolConfig returns pool sizing suitable for a single-node tenant
// engine with a moderate number of hot resources.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxEntries:  1000,
		IdleTimeout: 5 * time.Minute,
	}
}

// NewScratchPool creates a new ScratchPool.
func NewScratchPool(config *PoolConfig, logger logging.Logger) *ScratchPool {
	if config == nil {
		config = DefaultPoolConfig()
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &ScratchPool{
		objects: make(map[string]*pooledObject),
		config:  config,
		logger:  logger,
	}
}

// Acquire returns the scratch object for key, creating one via factory on
// first use. The caller must call Release when done so the object can be
// reused by the next caller acquiring the same key.
func (p *ScratchPool) Acquire(key string, factory func() any) any {
	p.mu.Lock()
	defer p.mu.Unlock()

	if obj, exists := p.objects[key]; exists {
		obj.lastUsed = time.Now()
		obj.useCount++
		obj.inUse = true
		return obj.value
	}

	if len(p.objects) >= p.config.MaxEntries {
		p.evictLRULocked()
	}

	obj := &pooledObject{
		value:    factory(),
		created:  time.Now(),
		lastUsed: time.Now(),
		useCount: 1,
		inUse:    true,
	}
	p.objects[key] = obj
	p.logger.Debug("allocated scratch object", "key", key)

	return obj.value
}

// Release marks key's scratch object as free for reuse.
func (p *ScratchPool) Release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if obj, exists := p.objects[key]; exists {
		obj.inUse = false
	}
}

func (p *ScratchPool) evictLRULocked() {
	var oldestKey string
	var oldestTime time.Time

	for key, obj := range p.objects {
		if obj.inUse {
			continue
		}
		if oldestKey == "" || obj.lastUsed.Before(oldestTime) {
			oldestKey = key
			oldestTime = obj.lastUsed
		}
	}

	if oldestKey != "" {
		delete(p.objects, oldestKey)
	}
}

// Stats returns statistics about the pool's current contents.
func (p *ScratchPool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := PoolStats{
		TotalEntries: len(p.objects),
		EntryStats:   make(map[string]EntryStats, len(p.objects)),
	}

	for key, obj := range p.objects {
		stats.EntryStats[key] = EntryStats{
			Created:  obj.created,
			LastUsed: obj.lastUsed,
			UseCount: obj.useCount,
			InUse:    obj.inUse,
		}
	}

	return stats
}

// Cleanup removes entries that have been idle longer than maxIdleTime and
// are not currently checked out. It returns the number of entries removed.
func (p *ScratchPool) Cleanup(maxIdleTime time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-maxIdleTime)

	for key, obj := range p.objects {
		if !obj.inUse && obj.lastUsed.Before(cutoff) {
			delete(p.objects, key)
			removed++
			p.logger.Debug("reclaimed idle scratch object",
				"key", key,
				"idle_duration", time.Since(obj.lastUsed),
			)
		}
	}

	return removed
}

// Close discards all pooled objects.
func (p *ScratchPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.objects = make(map[string]*pooledObject)
	p.logger.Info("closed scratch pool")
	return nil
}

// PoolStats contains statistics about the pool.
type PoolStats struct {
	TotalEntries int
	EntryStats   map[string]EntryStats
}

// EntryStats contains statistics for a single pooled entry.
type EntryStats struct {
	Created  time.Time
	LastUsed time.Time
	UseCount int64
	InUse    bool
}

// Manager runs a ScratchPool's background reclamation loop so the pool's
// owner doesn't need to remember to call Cleanup itself.
type Manager struct {
	pool            *ScratchPool
	cleanupInterval time.Duration
	maxIdleTime     time.Duration
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	logger          logging.Logger
}

// NewManager creates a Manager for pool.
func NewManager(pool *ScratchPool, logger logging.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &Manager{
		pool:            pool,
		cleanupInterval: time.Minute,
		maxIdleTime:     pool.config.IdleTimeout,
		ctx:             ctx,
		cancel:          cancel,
		logger:          logger,
	}
}

// Start begins the background reclamation loop.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.cleanupRoutine()
}

// Stop halts the background reclamation loop and waits for it to exit.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) cleanupRoutine() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := m.pool.Cleanup(m.maxIdleTime)
			if removed > 0 {
				m.logger.Debug("reclaimed idle scratch objects", "removed", removed)
			}
		case <-m.ctx.Done():
			return
		}
	}
}

// ErrPoolClosed reports a closed pool. No ScratchPool method returns it:
// after Close the pool is empty and Acquire allocates afresh.
var ErrPoolClosed = fmt.Errorf("scratch pool is closed")
