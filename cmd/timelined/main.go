// SPDX-License-Identifier: Apache-2.0

// Command timelined is the demonstration network adapter for the
// allocation engine: a gorilla/mux HTTP+WebSocket process standing in for
// the pgwire server spec.md describes, decoding JSON request bodies into
// internal/command structs and relaying internal/core/broadcast events to
// WebSocket watchers. It is explicitly not a production wire-protocol
// implementation.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/availdb/timelinedb/internal/command"
	"github.com/availdb/timelinedb/internal/tenant"
	"github.com/availdb/timelinedb/pkg/auth"
	"github.com/availdb/timelinedb/pkg/config"
	"github.com/availdb/timelinedb/pkg/logging"
	"github.com/availdb/timelinedb/pkg/metrics"
)

func main() {
	cfg := config.NewDefault()
	cfg.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(&logging.Config{
		Level:  logging.DefaultConfig().Level,
		Format: logging.FormatJSON,
		Output: os.Stdout,
		Tenant: "timelined",
	})
	collector := metrics.NewInMemoryCollector()

	tenants, err := tenant.NewManager(cfg, collector, logger)
	if err != nil {
		logger.Error("failed to start tenant manager", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := tenants.CloseAll(); err != nil {
			logger.Error("error closing tenants", "error", err)
		}
	}()

	translator, err := command.NewTranslator()
	if err != nil {
		logger.Error("failed to load command schema", "error", err)
		os.Exit(1)
	}

	var verifier auth.Verifier
	if cfg.Password != "" {
		verifier = auth.NewPasswordVerifier(cfg.Password)
	} else {
		verifier = auth.NewOpenVerifier()
	}

	srv := newServer(tenants, translator, verifier, logger, collector)
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error("error closing server", "error", err)
		}
	}()

	addr := cfg.BindAddr + ":" + strconv.Itoa(cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func wallClockMillis() int64 {
	return time.Now().UnixMilli()
}

func bindInt64(raw string, dst *int64) error {
	if raw == "" {
		return fmt.Errorf("missing required numeric parameter")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid numeric parameter %q: %w", raw, err)
	}
	*dst = v
	return nil
}
