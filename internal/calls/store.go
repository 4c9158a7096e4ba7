package calls

import "context"

// Store is the persistence contract for call runs.
// Append-plus-status-flip only; runs are never deleted.
type Store interface {
	Insert(ctx context.Context, r CallRun) (CallRun, error)
	GetByID(ctx context.Context, id string) (CallRun, error)
	MarkStopped(ctx context.Context, id string) (CallRun, error)
}
