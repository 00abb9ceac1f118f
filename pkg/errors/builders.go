// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"context"
	stderrors "errors"
)

// Wrap converts a generic error (typically from the WAL's underlying file
// I/O) into an *EngineError. If err is already an *EngineError it is
// returned unchanged so wrapping is idempotent.
func Wrap(err error) *EngineError {
	if err == nil {
		return nil
	}

	var ee *EngineError
	if stderrors.As(err, &ee) {
		return ee
	}

	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return Canceled(err)
	}

	return New(kindCanceled, err.Error()).WithCause(err)
}

// Is reports whether err is an *EngineError of the given kind, unwrapping as
// needed. It exists so callers don't need to import both this package and
// the standard errors package just to probe a kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// As is a thin re-export of errors.As so callers that already imported this
// package don't need a second import for the common case of unwrapping an
// *EngineError.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
