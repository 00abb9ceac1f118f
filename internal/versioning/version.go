// SPDX-License-Identifier: Apache-2.0

// Package versioning identifies the on-disk format of a tenant's WAL (C8).
// Each WAL segment's header records the format version it was written
// with; the engine refuses to replay a segment whose major version it does
// not recognize rather than guess at an incompatible record layout.
package versioning

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatVersion identifies a WAL on-disk record format.
type FormatVersion struct {
	Major int
	Minor int
	Patch int
	Raw   string
}

// Parse parses a version string like "v1.0.0" into a FormatVersion.
func Parse(version string) (*FormatVersion, error) {
	trimmed := strings.TrimPrefix(version, "v")

	parts := strings.Split(trimmed, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid format version %q (expected x.y.z)", version)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid major version: %s", parts[0])
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid minor version: %s", parts[1])
	}
	patch, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("invalid patch version: %s", parts[2])
	}

	return &FormatVersion{
		Major: major,
		Minor: minor,
		Patch: patch,
		Raw:   fmt.Sprintf("v%d.%d.%d", major, minor, patch),
	}, nil
}

// String returns the version's canonical "vMAJOR.MINOR.PATCH" form.
func (v *FormatVersion) String() string {
	return v.Raw
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other.
func (v *FormatVersion) Compare(other *FormatVersion) int {
	if v.Major != other.Major {
		if v.Major < other.Major {
			return -1
		}
		return 1
	}
	if v.Minor != other.Minor {
		if v.Minor < other.Minor {
			return -1
		}
		return 1
	}
	if v.Patch != other.Patch {
		if v.Patch < other.Patch {
			return -1
		}
		return 1
	}
	return 0
}

// IsReplayable reports whether a WAL segment written at version v can be
// replayed by an engine built against current. The major version must
// match exactly (a record layout change); a writer on a newer minor/patch
// than the reader is still replayable since minor/patch revisions only add
// optional fields.
func (v *FormatVersion) IsReplayable(current *FormatVersion) bool {
	return v.Major == current.Major
}

// Current is the WAL record format this build of the engine writes.
var Current = &FormatVersion{Major: 1, Minor: 0, Patch: 0, Raw: "v1.0.0"}
