// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"testing"
	"time"

	"github.com/availdb/timelinedb/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPoolConfig(t *testing.T) {
	config := DefaultPoolConfig()
	require.NotNil(t, config)
	assert.Equal(t, 1000, config.MaxEntries)
	assert.Equal(t, 5*time.Minute, config.IdleTimeout)
}

func TestScratchPool_AcquireReuses(t *testing.T) {
	p := NewScratchPool(nil, logging.NoOpLogger{})

	calls := 0
	factory := func() any {
		calls++
		return &struct{ n int }{}
	}

	first := p.Acquire("resource-a", factory)
	p.Release("resource-a")
	second := p.Acquire("resource-a", factory)

	assert.Equal(t, 1, calls)
	assert.Same(t, first, second)
}

func TestScratchPool_DistinctKeysDistinctObjects(t *testing.T) {
	p := NewScratchPool(nil, logging.NoOpLogger{})

	a := p.Acquire("a", func() any { return &struct{ n int }{} })
	b := p.Acquire("b", func() any { return &struct{ n int }{} })

	assert.NotSame(t, a, b)
}

func TestScratchPool_Stats(t *testing.T) {
	p := NewScratchPool(nil, logging.NoOpLogger{})
	p.Acquire("a", func() any { return 1 })

	stats := p.Stats()
	assert.Equal(t, 1, stats.TotalEntries)
	assert.True(t, stats.EntryStats["a"].InUse)
}

func TestScratchPool_CleanupReclaimsIdleOnly(t *testing.T) {
	p := NewScratchPool(nil, logging.NoOpLogger{})
	p.Acquire("idle", func() any { return 1 })
	p.Release("idle")
	p.Acquire("busy", func() any { return 2 })

	removed := p.Cleanup(0)
	assert.Equal(t, 1, removed)

	stats := p.Stats()
	_, stillThere := stats.EntryStats["busy"]
	assert.True(t, stillThere)
}

func TestScratchPool_Close(t *testing.T) {
	p := NewScratchPool(nil, logging.NoOpLogger{})
	p.Acquire("a", func() any { return 1 })
	require.NoError(t, p.Close())
	assert.Equal(t, 0, p.Stats().TotalEntries)
}

func TestManager_StartStop(t *testing.T) {
	p := NewScratchPool(nil, logging.NoOpLogger{})
	m := NewManager(p, logging.NoOpLogger{})
	m.Start()
	m.Stop()
}
