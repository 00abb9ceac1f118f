// SPDX-License-Identifier: Apache-2.0

package config

import "errors"

var (
	ErrInvalidPort           = errors.New("port must be between 1 and 65535")
	ErrMissingDataDir        = errors.New("data directory is required")
	ErrInvalidReaperInterval = errors.New("reaper interval must be greater than 0")
	ErrMissingPassword       = errors.New("password is required when binding to a non-loopback address")
)
