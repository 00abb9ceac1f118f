// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefault(t *testing.T) {
	c := NewDefault()
	assert.Equal(t, "0.0.0.0", c.BindAddr)
	assert.Equal(t, 5433, c.Port)
	assert.Equal(t, "./data", c.DataDir)
}

func TestValidate_RequiresPasswordForNonLoopback(t *testing.T) {
	c := NewDefault()
	c.Password = ""
	require.ErrorIs(t, c.Validate(), ErrMissingPassword)

	c.BindAddr = "127.0.0.1"
	assert.NoError(t, c.Validate())
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	t.Setenv("TIMELINEDB_PORT", "5555")
	t.Setenv("TIMELINEDB_DATA_DIR", "/tmp/tl-data")

	c := NewDefault()
	c.Load()

	assert.Equal(t, 5555, c.Port)
	assert.Equal(t, "/tmp/tl-data", c.DataDir)
}

func TestValidate_RejectsBadPort(t *testing.T) {
	c := NewDefault()
	c.BindAddr = "127.0.0.1"
	c.Port = 0
	require.ErrorIs(t, c.Validate(), ErrInvalidPort)
}
