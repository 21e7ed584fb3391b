// Package phase decides the site's current operational phase from a
// scheduler signal, with debouncing and stale-event fallback.
package phase

import "time"

// Phase is a site-wide operational label, e.g. "working" or "non_working".
type Phase struct {
	Name         string
	IsWorkingHours bool
}

// State is the debounced phase engine's persisted state.
type State struct {
	Committed      string
	EnteredAt      time.Time
	Candidate      string
	CandidateSince time.Time
}
