// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPIClient(t *testing.T, handler http.HandlerFunc) (*apiClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newAPIClient(srv.URL, "acme", "", ""), srv
}

func TestDo_SendsTenantScopedPath(t *testing.T) {
	var gotPath string
	c, _ := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{"id": "r1"})
	})

	_, err := c.CreateResource(map[string]any{"name": "room-a"})
	require.NoError(t, err)
	assert.Equal(t, "/tenants/acme/resources", gotPath)
}

func TestDo_SendsBasicAuthWhenPasswordSet(t *testing.T) {
	var gotUser, gotPass string
	var gotOK bool
	c, _ := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotOK = r.BasicAuth()
		json.NewEncoder(w).Encode(map[string]any{})
	})
	c.password = "secret"
	c.username = "admin"

	_, err := c.DeleteResource("r1")
	require.NoError(t, err)
	assert.True(t, gotOK)
	assert.Equal(t, "admin", gotUser)
	assert.Equal(t, "secret", gotPass)
}

func TestDo_ReturnsErrorOnNonSuccessStatus(t *testing.T) {
	c, _ := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"error": "capacity exceeded"})
	})

	_, err := c.CreateBookings(map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capacity exceeded")
}

func TestAvailability_AppendsRawQueryString(t *testing.T) {
	var gotQuery string
	c, _ := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]any{"gaps": []any{}})
	})

	_, err := c.Availability("resource_id=r1%2Cr2&start=0&end=1000")
	require.NoError(t, err)
	assert.Equal(t, "resource_id=r1%2Cr2&start=0&end=1000", gotQuery)
}

func TestTitleCase_RendersSnakeCaseField(t *testing.T) {
	assert.Equal(t, "Batch Id", titleCase("batch_id"))
	assert.Equal(t, "Resource Id", titleCase("resource_id"))
}
