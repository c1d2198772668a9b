package aggregate

import (
	"time"

	"upm/pkg/source"
)

// Status describes what happened to one source during an aggregation pass.
// The set is closed; callers switch over it rather than inspecting errors.
type Status string

const (
	// StatusDisabled: the source is turned off in preferences.
	StatusDisabled Status = "disabled"
	// StatusUnavailable: the backend is not installed or not running.
	StatusUnavailable Status = "unavailable"
	// StatusDenied: a rate limiter rejected the query. Not a failure.
	StatusDenied Status = "denied"
	// StatusFailed: the backend was queried and errored.
	StatusFailed Status = "failed"
	// StatusOK: the backend was queried successfully.
	StatusOK Status = "ok"
	// StatusSkipped: the global result budget was exhausted before this
	// source's turn.
	StatusSkipped Status = "skipped"
)

// Outcome records one source's contribution to a search.
type Outcome struct {
	Kind   source.Kind
	Status Status
	Count  int           // packages contributed (StatusOK only)
	Wait   time.Duration // suggested retry delay (StatusDenied only)
	Err    error         // underlying error (StatusFailed only)
}

// Report is the result of one aggregation pass: the merged package list
// plus a per-source outcome for every registered backend, so callers can
// tell "nothing enabled" apart from "searched everywhere, found nothing".
type Report struct {
	Packages []source.Package
	Outcomes []Outcome
}

// Queried returns how many sources were actually asked for results.
func (r *Report) Queried() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == StatusOK || o.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Outcome returns the outcome for a specific source kind.
func (r *Report) Outcome(kind source.Kind) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			return o, true
		}
	}
	return Outcome{}, false
}
