// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineError_Is(t *testing.T) {
	err := New(KindNotFound, "resource r1 not found").WithResource("r1")

	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(err, KindAlreadyExists))

	wrapped := fmt.Errorf("command failed: %w", err)
	assert.True(t, Is(wrapped, KindNotFound))
}

func TestCapacityExceeded(t *testing.T) {
	err := CapacityExceeded("r1", 2)
	assert.Equal(t, KindCapacityExceeded, err.Kind)
	assert.Equal(t, 2, err.Capacity)
	assert.Contains(t, err.Error(), "capacity 2 exceeded")
}

func TestWrap(t *testing.T) {
	original := New(KindConflict, "overlap")
	assert.Same(t, original, Wrap(original))

	ctxErr := Wrap(context.Canceled)
	require.NotNil(t, ctxErr)
	assert.Equal(t, kindCanceled, ctxErr.Kind)
	assert.ErrorIs(t, ctxErr.Unwrap(), context.Canceled)
}

func TestKindOf(t *testing.T) {
	_, ok := KindOf(fmt.Errorf("plain"))
	assert.False(t, ok)

	k, ok := KindOf(New(KindInUse, "x"))
	assert.True(t, ok)
	assert.Equal(t, KindInUse, k)
}
