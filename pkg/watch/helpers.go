// SPDX-License-Identifier: Apache-2.0

package watch

import "fmt"

// Describe renders an Event as a single human-readable line for
// cmd/timelinectl's watch command.
func Describe(ev Event) string {
	if ev.EntityID != "" {
		return fmt.Sprintf("[%s] %s resource=%s entity=%s batch=%s",
			ev.OccurredAt.Format("15:04:05.000"), ev.EventType, ev.ResourceID, ev.EntityID, ev.BatchID)
	}
	return fmt.Sprintf("[%s] %s resource=%s batch=%s",
		ev.OccurredAt.Format("15:04:05.000"), ev.EventType, ev.ResourceID, ev.BatchID)
}
