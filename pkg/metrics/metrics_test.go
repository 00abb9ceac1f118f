// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryCollector_RecordCommit(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordCommit(true, 10*time.Millisecond, 3)
	c.RecordCommit(false, 5*time.Millisecond, 0)

	stats := c.GetStats()
	assert.Equal(t, int64(2), stats.TotalCommits)
	assert.Equal(t, int64(1), stats.SuccessfulCommits)
	assert.Equal(t, int64(1), stats.FailedCommits)
	assert.Equal(t, int64(3), stats.CommandsCommitted)
	assert.Equal(t, int64(2), stats.CommitLatency.Count)
	assert.Equal(t, 5*time.Millisecond, stats.CommitLatency.Min)
	assert.Equal(t, 10*time.Millisecond, stats.CommitLatency.Max)
}

func TestInMemoryCollector_RecordConflict(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordConflict("capacity_exceeded")
	c.RecordConflict("capacity_exceeded")
	c.RecordConflict("blocked_by_rule")

	stats := c.GetStats()
	assert.Equal(t, int64(2), stats.ConflictsByKind["capacity_exceeded"])
	assert.Equal(t, int64(1), stats.ConflictsByKind["blocked_by_rule"])
}

func TestInMemoryCollector_RecordQuery(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordQuery(2*time.Millisecond, 4, 7)

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.TotalQueries)
	assert.Equal(t, int64(7), stats.GapsEmitted)
}

func TestInMemoryCollector_RecordHoldExpiredAndWALBytes(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordHoldExpired()
	c.RecordHoldExpired()
	c.RecordWALBytes(128)

	stats := c.GetStats()
	assert.Equal(t, int64(2), stats.HoldsExpired)
	assert.Equal(t, int64(128), stats.WALBytesTotal)
}

func TestInMemoryCollector_Reset(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordCommit(true, time.Millisecond, 1)
	c.RecordConflict("conflict")
	c.Reset()

	stats := c.GetStats()
	assert.Zero(t, stats.TotalCommits)
	assert.Empty(t, stats.ConflictsByKind)
}

func TestNoOpCollector(t *testing.T) {
	var c Collector = NoOpCollector{}
	c.RecordCommit(true, time.Second, 1)
	c.RecordConflict("x")
	c.RecordQuery(time.Second, 1, 1)
	c.RecordHoldExpired()
	c.RecordWALBytes(1)
	assert.NotNil(t, c.GetStats())
	c.Reset()
}
