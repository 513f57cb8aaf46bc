// Package contest covers contest management and the date-derived lifecycle.
package contest

import "time"

// Status is a contest's lifecycle phase, always derived from its date window
// against the current date. It is never stored, so it cannot drift.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// DeriveStatus is the single lifecycle gate: upcoming before the window,
// active inside it (boundaries inclusive), completed after. A completed
// contest keeps serving its ranking; only score acceptance is gated on this.
func DeriveStatus(startDate, endDate, today time.Time) Status {
	if today.Before(startDate) {
		return StatusUpcoming
	}
	if today.After(endDate) {
		return StatusCompleted
	}
	return StatusActive
}
