// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordVerifier_AcceptsCorrectPassword(t *testing.T) {
	v := NewPasswordVerifier("secret")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("anyone", "secret")

	assert.True(t, v.Verify(req))
}

func TestPasswordVerifier_RejectsWrongPassword(t *testing.T) {
	v := NewPasswordVerifier("secret")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("anyone", "wrong")

	assert.False(t, v.Verify(req))
}

func TestPasswordVerifier_RejectsMissingAuth(t *testing.T) {
	v := NewPasswordVerifier("secret")
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	assert.False(t, v.Verify(req))
}

func TestOpenVerifier_AlwaysAllows(t *testing.T) {
	v := NewOpenVerifier()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, v.Verify(req))
}

func TestRequireAuth_RejectsUnauthorized(t *testing.T) {
	handler := RequireAuth(NewPasswordVerifier("secret"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
}

func TestRequireAuth_AllowsAuthorized(t *testing.T) {
	handler := RequireAuth(NewPasswordVerifier("secret"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("u", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
