// SPDX-License-Identifier: Apache-2.0

// Package auth provides request authentication for the demonstration
// adapter (cmd/timelined). A single shared password gates access, matching
// spec.md's TIMELINEDB_PASSWORD configuration knob.
package auth

import (
	"crypto/subtle"
	"net/http"
)

// Verifier checks whether an incoming request is authorized.
type Verifier interface {
	Verify(req *http.Request) bool
}

// PasswordVerifier requires HTTP Basic auth with a fixed password; the
// username is ignored, matching a single-tenant shared-secret model.
type PasswordVerifier struct {
	password string
}

// NewPasswordVerifier creates a PasswordVerifier for the given password.
func NewPasswordVerifier(password string) *PasswordVerifier {
	return &PasswordVerifier{password: password}
}

// Verify reports whether req carries the configured password via HTTP
// Basic auth, using a constant-time comparison to avoid a timing
// side-channel.
func (p *PasswordVerifier) Verify(req *http.Request) bool {
	_, password, ok := req.BasicAuth()
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(p.password)) == 1
}

// OpenVerifier allows all requests; used when the adapter is bound to a
// loopback address and pkg/config.Validate did not require a password.
type OpenVerifier struct{}

// NewOpenVerifier creates an OpenVerifier.
func NewOpenVerifier() *OpenVerifier {
	return &OpenVerifier{}
}

// Verify always returns true.
func (OpenVerifier) Verify(req *http.Request) bool {
	return true
}

// RequireAuth wraps next with HTTP Basic auth enforcement via verifier,
// responding 401 with a WWW-Authenticate challenge on failure.
func RequireAuth(verifier Verifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !verifier.Verify(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="timelinedb"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
