package sync

import (
	"fmt"

	"github.com/kadromedya/statsync/internal/store"
)

// How many error messages a sync-log row retains.
const maxLoggedErrors = 10

// Result accumulates the outcome of one batch run. One athlete's failure is
// appended here and the loop continues; the batch never aborts mid-roster.
type Result struct {
	Processed int
	Succeeded int
	Errors    []string
}

// AddError records a per-item failure.
func (r *Result) AddError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Failed reports how many items failed.
func (r *Result) Failed() int {
	return len(r.Errors)
}

// Status maps the counters onto a sync-log status: everything worked,
// some items failed, or nothing succeeded at all.
func (r *Result) Status() string {
	switch {
	case len(r.Errors) == 0:
		return store.SyncStatusSuccess
	case r.Succeeded > 0:
		return store.SyncStatusPartial
	default:
		return store.SyncStatusError
	}
}

// LoggedErrors returns the first messages retained for the sync log.
func (r *Result) LoggedErrors() []string {
	if len(r.Errors) <= maxLoggedErrors {
		return r.Errors
	}
	return r.Errors[:maxLoggedErrors]
}
