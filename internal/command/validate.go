// SPDX-License-Identifier: Apache-2.0

package command

import (
	timelineerrors "github.com/availdb/timelinedb/pkg/errors"
)

// fieldValidator runs the teacher's style of layered field validation —
// non-negative numeric fields, required fields, shape checks — ahead of
// and distinct from C5's admission checks (internal/managers/base's
// CRUDManager, narrowed to this engine's five row shapes). A malformed
// span or capacity fails fast with "invalid span"/"invalid reference"
// without ever touching C1-C4.
type fieldValidator struct{}

func newFieldValidator() *fieldValidator { return &fieldValidator{} }

func (fieldValidator) requireID(field, id string) error {
	if id == "" {
		return timelineerrors.New(timelineerrors.KindInvalidReference, field+" is required")
	}
	return nil
}

func (fieldValidator) requireSpan(start, end int64) error {
	if end <= start {
		return timelineerrors.New(timelineerrors.KindInvalidSpan, "end must be greater than start")
	}
	return nil
}

func (fieldValidator) requireCapacity(capacity int) error {
	if capacity < 1 {
		return timelineerrors.New(timelineerrors.KindInvalidReference, "capacity must be at least 1")
	}
	return nil
}

func (fieldValidator) requireNonNegative(field string, v int64) error {
	if v < 0 {
		return timelineerrors.New(timelineerrors.KindInvalidReference, field+" must be non-negative")
	}
	return nil
}

func (fieldValidator) requireName(name string) error {
	if name == "" {
		return timelineerrors.New(timelineerrors.KindInvalidReference, "name is required")
	}
	return nil
}
