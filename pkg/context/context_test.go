// SPDX-License-Identifier: Apache-2.0

package context

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTimeout_Watch_NoDeadline(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), OpWatch, nil)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)
}

func TestWithTimeout_Read(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), OpRead, DefaultTimeoutConfig())
	defer cancel()
	_, ok := ctx.Deadline()
	assert.True(t, ok)
}

func TestEnsureTimeout_PreservesExisting(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	ctx, cancel2 := EnsureTimeout(parent, time.Hour)
	defer cancel2()
	assert.Equal(t, parent, ctx)
}

func TestWrapOperationError(t *testing.T) {
	err := WrapOperationError(context.DeadlineExceeded, "availability-query", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "availability-query")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
