// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff_NextDelay(t *testing.T) {
	b := NewExponentialBackoff()
	b.Jitter = 0

	d0, ok := b.NextDelay(0)
	require.True(t, ok)
	assert.Equal(t, b.InitialDelay, d0)

	d1, ok := b.NextDelay(1)
	require.True(t, ok)
	assert.Equal(t, b.InitialDelay*2, d1)
}

func TestExponentialBackoff_StopsAtMaxAttempts(t *testing.T) {
	b := NewExponentialBackoff()
	b.MaxAttempts = 2

	_, ok := b.NextDelay(2)
	assert.False(t, ok)
}

func TestConstantBackoff(t *testing.T) {
	b := NewConstantBackoff(50*time.Millisecond, 3)

	d, ok := b.NextDelay(0)
	require.True(t, ok)
	assert.Equal(t, 50*time.Millisecond, d)

	_, ok = b.NextDelay(3)
	assert.False(t, ok)
}

func TestRetry_SucceedsEventually(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), NewConstantBackoff(time.Millisecond, 5), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, NewConstantBackoff(time.Second, 5), func() error {
		return errors.New("always fails")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
