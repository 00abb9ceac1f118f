// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/availdb/timelinedb/internal/command"
	"github.com/availdb/timelinedb/internal/core"
	"github.com/availdb/timelinedb/internal/core/model"
	"github.com/availdb/timelinedb/internal/core/mutation"
	"github.com/availdb/timelinedb/internal/tenant"
	"github.com/availdb/timelinedb/pkg/auth"
	timelinectx "github.com/availdb/timelinedb/pkg/context"
	timelineerrors "github.com/availdb/timelinedb/pkg/errors"
	"github.com/availdb/timelinedb/pkg/logging"
	"github.com/availdb/timelinedb/pkg/metrics"
	"github.com/availdb/timelinedb/pkg/middleware"
	"github.com/availdb/timelinedb/pkg/pool"
	"github.com/availdb/timelinedb/pkg/streaming"
)

// server wires one tenant.Manager, one command.Translator, and the
// WebSocket relay behind a gorilla/mux router — the same "one struct holds
// every dependency a handler method needs" shape the teacher's mock Slurm
// server uses for its own handlers.
type server struct {
	tenants    *tenant.Manager
	translator *command.Translator
	verifier   auth.Verifier
	logger     logging.Logger
	metrics    metrics.Collector
	buffers     *pool.ScratchPool
	poolManager *pool.Manager
	timeouts    *timelinectx.TimeoutConfig
}

func newServer(tenants *tenant.Manager, translator *command.Translator, verifier auth.Verifier, lg logging.Logger, m metrics.Collector) *server {
	buffers := pool.NewScratchPool(nil, lg)
	poolManager := pool.NewManager(buffers, lg)
	poolManager.Start()

	return &server{
		tenants:     tenants,
		translator:  translator,
		verifier:    verifier,
		logger:      lg,
		metrics:     m,
		buffers:     buffers,
		poolManager: poolManager,
		timeouts:    timelinectx.DefaultTimeoutConfig(),
	}
}

// Close stops the scratch pool's background reclamation loop and discards
// any pooled scratch buffers. Call once, after the HTTP server has stopped
// accepting new requests.
func (s *server) Close() error {
	s.poolManager.Stop()
	return s.buffers.Close()
}

func (s *server) router() http.Handler {
	r := mux.NewRouter().StrictSlash(false)

	chain := middleware.Chain(
		middleware.WithRecover(s.logger),
		middleware.WithRequestID(),
		middleware.WithLogging(s.logger),
		middleware.WithMetrics(s.metrics),
	)

	api := r.PathPrefix("/tenants/{tenant}").Subrouter()
	api.Use(func(next http.Handler) http.Handler { return auth.RequireAuth(s.verifier, next) })

	api.HandleFunc("/resources", s.handleCreateResource).Methods(http.MethodPost)
	api.HandleFunc("/resources/{id}", s.handleUpdateResource).Methods(http.MethodPut)
	api.HandleFunc("/resources/{id}", s.handleDeleteResource).Methods(http.MethodDelete)
	api.HandleFunc("/rules", s.handleCreateRule).Methods(http.MethodPost)
	api.HandleFunc("/rules/{id}", s.handleUpdateRule).Methods(http.MethodPut)
	api.HandleFunc("/rules/{id}", s.handleDeleteRule).Methods(http.MethodDelete)
	api.HandleFunc("/bookings", s.handleCreateBookings).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}", s.handleDeleteBooking).Methods(http.MethodDelete)
	api.HandleFunc("/holds", s.handlePlaceHold).Methods(http.MethodPost)
	api.HandleFunc("/holds/{id}", s.handleReleaseHold).Methods(http.MethodDelete)
	api.HandleFunc("/availability", s.handleAvailabilityQuery).Methods(http.MethodGet)
	api.HandleFunc("/resources/{id}/watch", s.handleWatch).Methods(http.MethodGet)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	return chain(r)
}

func (s *server) engine(w http.ResponseWriter, r *http.Request) (*core.Engine, bool) {
	id := mux.Vars(r)["tenant"]
	e, err := s.tenants.Open(id)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return e, true
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	var req command.CreateResourceRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = e.NewID()
	}
	cmd, err := s.translator.CreateResource(req)
	s.commitOne(w, r, e, cmd, err)
}

func (s *server) handleUpdateResource(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	var req command.UpdateResourceRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.ID = mux.Vars(r)["id"]
	cmd, err := s.translator.UpdateResource(req)
	s.commitOne(w, r, e, cmd, err)
}

func (s *server) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	cmd, err := s.translator.DeleteResource(command.DeleteResourceRequest{ID: mux.Vars(r)["id"]})
	s.commitOne(w, r, e, cmd, err)
}

func (s *server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	var req command.CreateRuleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = e.NewID()
	}
	cmd, err := s.translator.CreateRule(req)
	s.commitOne(w, r, e, cmd, err)
}

func (s *server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	var req command.UpdateRuleRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.ID = mux.Vars(r)["id"]
	cmd, err := s.translator.UpdateRule(req)
	s.commitOne(w, r, e, cmd, err)
}

func (s *server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	cmd, err := s.translator.DeleteRule(command.DeleteRuleRequest{ID: mux.Vars(r)["id"]})
	s.commitOne(w, r, e, cmd, err)
}

func (s *server) handleCreateBookings(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	var req command.CreateBookingsRequest
	if !s.decode(w, r, &req) {
		return
	}
	for i, row := range req.Bookings {
		if row.ID == "" {
			req.Bookings[i].ID = e.NewID()
		}
	}
	cmd, err := s.translator.CreateBookings(req)
	s.commitOne(w, r, e, cmd, err)
}

func (s *server) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	cmd, err := s.translator.DeleteBooking(command.DeleteBookingRequest{ID: mux.Vars(r)["id"]})
	s.commitOne(w, r, e, cmd, err)
}

func (s *server) handlePlaceHold(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	var req command.PlaceHoldRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = e.NewID()
	}
	cmd, err := s.translator.PlaceHold(req)
	s.commitOne(w, r, e, cmd, err)
}

func (s *server) handleReleaseHold(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	cmd, err := s.translator.ReleaseHold(command.ReleaseHoldRequest{ID: mux.Vars(r)["id"]})
	s.commitOne(w, r, e, cmd, err)
}

func (s *server) handleAvailabilityQuery(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	req := command.AvailabilityQueryRequest{ResourceID: q.Get("resource_id")}
	if err := bindInt64(q.Get("start"), &req.Start); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := bindInt64(q.Get("end"), &req.End); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if raw := q.Get("min_duration"); raw != "" {
		if err := bindInt64(raw, &req.MinDuration); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if raw := q.Get("min_available"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid min_available %q: %w", raw, err))
			return
		}
		req.MinAvailable = n
	}

	query, err := s.translator.AvailabilityQuery(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := timelinectx.WithTimeout(r.Context(), timelinectx.OpRead, s.timeouts)
	defer cancel()

	type result struct {
		gaps []model.Span
		err  error
	}
	done := make(chan result, 1)
	go func() {
		gaps, err := e.Solve(query, wallClockMillis())
		done <- result{gaps, err}
	}()

	select {
	case <-ctx.Done():
		s.writeError(w, http.StatusServiceUnavailable,
			timelinectx.WrapOperationError(ctx.Err(), "availability query", s.timeouts.Read))
	case res := <-done:
		if res.err != nil {
			s.writeEngineError(w, res.err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"gaps": res.gaps})
	}
}

// handleWatch upgrades to a WebSocket and relays this tenant's
// broadcaster events for one resource. It checks out the s.buffers entry
// keyed by the resource ID for the lifetime of the connection and releases
// it afterwards; the relay encodes each frame itself and does not use that
// buffer.
func (s *server) handleWatch(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	resourceID := mux.Vars(r)["id"]

	s.buffers.Acquire(resourceID, func() any { return make([]byte, 0, 512) })
	defer s.buffers.Release(resourceID)

	relay := streaming.NewWebSocketServer(e, s.logger)
	relay.HandleWebSocket(resourceID)(w, r)
}

func (s *server) commitOne(w http.ResponseWriter, r *http.Request, e *core.Engine, cmd mutation.Command, err error) {
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := timelinectx.WithTimeout(r.Context(), timelinectx.OpWrite, s.timeouts)
	defer cancel()

	type result struct {
		batchID string
		err     error
	}
	done := make(chan result, 1)
	go func() {
		batchID, err := e.Commit([]mutation.Command{cmd}, wallClockMillis())
		done <- result{batchID, err}
	}()

	select {
	case <-ctx.Done():
		s.writeError(w, http.StatusServiceUnavailable,
			timelinectx.WrapOperationError(ctx.Err(), "commit", s.timeouts.Write))
	case res := <-done:
		if res.err != nil {
			s.writeEngineError(w, res.err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"batch_id": res.batchID})
	}
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return false
	}
	return true
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeEngineError maps a stable error Kind to an HTTP status, per
// spec.md §7's category table: identity/validation failures are client
// errors, admission failures are conflicts, everything else is a 500.
func (s *server) writeEngineError(w http.ResponseWriter, err error) {
	kind, ok := timelineerrors.KindOf(err)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	switch kind {
	case timelineerrors.KindNotFound:
		s.writeError(w, http.StatusNotFound, err)
	case timelineerrors.KindAlreadyExists, timelineerrors.KindInUse, timelineerrors.KindHasChildren,
		timelineerrors.KindInvalidSpan, timelineerrors.KindInvalidReference:
		s.writeError(w, http.StatusBadRequest, err)
	case timelineerrors.KindOutsideAvailability, timelineerrors.KindBlockedByRule,
		timelineerrors.KindCapacityExceeded, timelineerrors.KindConflict:
		s.writeError(w, http.StatusConflict, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}
