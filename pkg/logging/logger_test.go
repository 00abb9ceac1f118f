// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	logger := NewLogger(&Config{Format: FormatJSON, Output: w, Tenant: "acme"})
	logger.Info("hello", "resource", "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	w.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "acme", entry["tenant"])
}

func TestSanitizeLogValue_StripsControlChars(t *testing.T) {
	out := sanitizeLogValue("line1\nline2\tinjected")
	assert.Equal(t, "line1 line2 injected", out)
}

func TestWithBatchID(t *testing.T) {
	ctx := WithBatchID(context.Background(), "b-123")
	logger := NewLogger(&Config{Format: FormatText, Output: os.Stdout, Tenant: "t"})
	scoped := logger.WithContext(ctx)
	require.NotNil(t, scoped)
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	assert.NotNil(t, l.With("a", 1))
	assert.NotNil(t, l.WithContext(context.Background()))
}
