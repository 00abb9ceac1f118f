// SPDX-License-Identifier: Apache-2.0

// Package errors provides the stable, structured error kinds surfaced by the
// timelinedb engine to its callers.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Kind is one of the stable error strings the engine contract promises never
// to rename. Callers (including tests) may match on Kind directly.
type Kind string

const (
	KindAlreadyExists       Kind = "already exists"
	KindNotFound            Kind = "not found"
	KindHasChildren         Kind = "has children"
	KindInUse               Kind = "in use"
	KindOutsideAvailability Kind = "outside availability"
	KindBlockedByRule       Kind = "blocked by rule"
	KindCapacityExceeded    Kind = "capacity exceeded"
	KindConflict            Kind = "conflict with allocation"
	KindInvalidSpan         Kind = "invalid span"
	KindInvalidReference    Kind = "invalid reference"

	// kindCanceled is not one of the ten stable kinds of spec.md §7 — it
	// covers a read or write whose context was canceled before completion,
	// which is a caller-side condition, not a validation failure.
	kindCanceled Kind = "canceled"
)

// Category groups kinds for coarse handling (e.g. deciding whether a batch
// may be retried as-is, or must be rebuilt).
type Category string

const (
	CategoryIdentity   Category = "IDENTITY"   // already exists / not found / invalid reference
	CategoryLifecycle  Category = "LIFECYCLE"  // has children / in use
	CategoryAdmission  Category = "ADMISSION"  // outside availability / blocked by rule / capacity / conflict
	CategoryValidation Category = "VALIDATION" // invalid span
	CategoryCanceled   Category = "CANCELED"
)

var categoryByKind = map[Kind]Category{
	KindAlreadyExists:       CategoryIdentity,
	KindNotFound:            CategoryIdentity,
	KindInvalidReference:    CategoryIdentity,
	KindHasChildren:         CategoryLifecycle,
	KindInUse:               CategoryLifecycle,
	KindOutsideAvailability: CategoryAdmission,
	KindBlockedByRule:       CategoryAdmission,
	KindCapacityExceeded:    CategoryAdmission,
	KindConflict:            CategoryAdmission,
	KindInvalidSpan:         CategoryValidation,
	kindCanceled:            CategoryCanceled,
}

// EngineError is the concrete error type returned for every validation and
// admission failure in the engine. Constructing one never itself touches
// C1–C4 — it is always the last step before a command is rejected.
type EngineError struct {
	Kind      Kind
	Category  Category
	Message   string
	Resource  string // resource id involved, if any
	Capacity  int    // populated for KindCapacityExceeded
	Timestamp time.Time
	Cause     error
}

func (e *EngineError) Error() string {
	if e.Kind == KindCapacityExceeded {
		return fmt.Sprintf("capacity %d exceeded: %s", e.Capacity, e.Message)
	}
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (resource %s)", e.Kind, e.Message, e.Resource)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Cause }

// Is lets stderrors.Is(err, &EngineError{Kind: KindNotFound}) match on Kind
// alone, the way callers are expected to probe these errors.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an EngineError of the given kind.
func New(kind Kind, message string) *EngineError {
	return &EngineError{Kind: kind, Category: categoryByKind[kind], Message: message, Timestamp: time.Now()}
}

// Newf constructs an EngineError with a formatted message.
func Newf(kind Kind, format string, args ...any) *EngineError {
	return New(kind, fmt.Sprintf(format, args...))
}

// WithResource annotates the error with the resource identity it concerns.
func (e *EngineError) WithResource(id string) *EngineError {
	e.Resource = id
	return e
}

// WithCause attaches the underlying cause (e.g. a WAL I/O error).
func (e *EngineError) WithCause(cause error) *EngineError {
	e.Cause = cause
	return e
}

// CapacityExceeded builds the one kind whose message embeds a number
// (spec.md: "capacity N exceeded").
func CapacityExceeded(resource string, capacity int) *EngineError {
	return &EngineError{
		Kind:      KindCapacityExceeded,
		Category:  CategoryAdmission,
		Message:   fmt.Sprintf("admitting the candidate would raise the stack-count above %d", capacity),
		Resource:  resource,
		Capacity:  capacity,
		Timestamp: time.Now(),
	}
}

// Canceled reports a read or write whose context ended before completion.
func Canceled(cause error) *EngineError {
	return New(kindCanceled, "operation canceled").WithCause(cause)
}

// KindOf extracts the stable Kind from err, if it is (or wraps) an
// *EngineError.
func KindOf(err error) (Kind, bool) {
	var ee *EngineError
	if stderrors.As(err, &ee) {
		return ee.Kind, true
	}
	return "", false
}
