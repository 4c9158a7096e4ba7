package calljobs

import (
	"context"
	"errors"
	"time"
)

// ErrConflict signals a guarded status transition that matched no row:
// the job moved concurrently. Callers treat it as an invalid transition.
var ErrConflict = errors.New("job status changed concurrently")

// staleLeaseAfter bounds how long a calling row may sit untouched before
// it is considered orphaned. A dial attempt holds its lease for at most
// one vendor HTTP round trip, so two minutes is comfortably past any
// legitimate hold.
const staleLeaseAfter = 2 * time.Minute

// Store is the persistence contract for call jobs and their enrollment.
type Store interface {
	// CreateWithContacts persists the job and one enrollment row per
	// contact id, atomically. Either everything lands or nothing does.
	CreateWithContacts(ctx context.Context, job CallJob, contactIDs []string) (CallJob, error)

	GetByID(ctx context.Context, id string) (CallJob, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]CallJob, error)

	// Transition flips job status to `to` only if the current status is in
	// allowedFrom. Returns ErrConflict when the guard matches no row.
	// An empty allowedFrom means unconditional.
	Transition(ctx context.Context, id string, to Status, allowedFrom ...Status) (CallJob, error)

	// LeaseContacts claims up to limit queued contacts of a job for
	// dialing (queued -> calling). Concurrent runners never lease the
	// same row twice. Calling rows untouched for longer than
	// staleLeaseAfter are lease orphans (crashed pass, failed release)
	// and are claimed again like queued ones.
	LeaseContacts(ctx context.Context, jobID string, limit int) ([]CallJobContact, error)

	// SetContactStatus finishes or releases a leased contact, optionally
	// counting the attempt.
	SetContactStatus(ctx context.Context, jobID, contactID string, to ContactStatus, countAttempt bool) (CallJobContact, error)

	// PendingCount reports how many contacts are still queued or calling.
	PendingCount(ctx context.Context, jobID string) (int, error)

	Progress(ctx context.Context, jobID string) (Progress, error)
}
