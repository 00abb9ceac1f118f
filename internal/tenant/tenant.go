// SPDX-License-Identifier: Apache-2.0

// Package tenant owns the lifecycle of every per-tenant internal/core.Engine
// a running timelined process serves: opening a tenant's WAL directory on
// first use (replaying it into a live Engine), handing back the same
// Engine on subsequent lookups, and closing every open Engine on shutdown.
// spec.md §6 maps a pgwire connection's database name onto a tenant; this
// package is what that mapping resolves to once a name is known.
package tenant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/availdb/timelinedb/internal/core"
	"github.com/availdb/timelinedb/pkg/config"
	"github.com/availdb/timelinedb/pkg/logging"
	"github.com/availdb/timelinedb/pkg/metrics"
)

// validID matches the tenant identifiers this package accepts: the
// pgwire database-name alphabet, kept narrow so a tenant ID can never be
// used to escape config.Config.DataDir via "..", a separator, or a null
// byte.
var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Manager opens, caches, and closes one internal/core.Engine per tenant
// ID. It is safe for concurrent use from cmd/timelined's connection
// handlers.
type Manager struct {
	mu      sync.Mutex
	cfg     *config.Config
	metrics metrics.Collector
	logger  logging.Logger
	engines map[string]*core.Engine
}

// NewManager returns a Manager rooted at cfg.DataDir. cfg.DataDir is
// created if it does not already exist.
func NewManager(cfg *config.Config, m metrics.Collector, lg logging.Logger) (*Manager, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", cfg.DataDir, err)
	}
	return &Manager{
		cfg:     cfg,
		metrics: m,
		logger:  lg,
		engines: make(map[string]*core.Engine),
	}, nil
}

// Open returns the running Engine for tenantID, opening and replaying its
// WAL directory on first use and starting its reaper. Subsequent calls
// for the same tenant return the same Engine without touching disk again.
func (m *Manager) Open(tenantID string) (*core.Engine, error) {
	if !validID.MatchString(tenantID) {
		return nil, fmt.Errorf("invalid tenant id %q", tenantID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.engines[tenantID]; ok {
		return e, nil
	}

	dir := filepath.Join(m.cfg.DataDir, tenantID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating tenant directory for %s: %w", tenantID, err)
	}

	e, err := core.Open(tenantID, core.Options{
		WALPath:         filepath.Join(dir, "wal.log"),
		ReaperInterval:  time.Duration(m.cfg.ReaperIntervalMS) * time.Millisecond,
		BroadcastBuffer: 64,
		Metrics:         m.metrics,
		Logger:          m.logger.With("tenant", tenantID),
	})
	if err != nil {
		return nil, fmt.Errorf("opening tenant %s: %w", tenantID, err)
	}

	e.Start(context.Background())
	m.engines[tenantID] = e
	m.logger.Info("tenant engine opened", "tenant", tenantID, "dir", dir)
	return e, nil
}

// Tenants lists the IDs of every tenant with a currently open Engine.
func (m *Manager) Tenants() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.engines))
	for id := range m.engines {
		ids = append(ids, id)
	}
	return ids
}

// Close shuts down tenantID's Engine, if open, and drops it from the
// manager. Closing a tenant with no open Engine is a no-op.
func (m *Manager) Close(tenantID string) error {
	m.mu.Lock()
	e, ok := m.engines[tenantID]
	delete(m.engines, tenantID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return e.Close()
}

// CloseAll shuts down every open tenant Engine, collecting the first
// error encountered (if any) while still attempting every close.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	engines := m.engines
	m.engines = make(map[string]*core.Engine)
	m.mu.Unlock()

	var firstErr error
	for id, e := range engines {
		if err := e.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing tenant %s: %w", id, err)
		}
	}
	return firstErr
}
