// Package quota provides the client interface to the external quota
// accounting service.
//
// Quota calls are synchronous but not transactionally joined to the
// catalog commit: a failing check before a write aborts the operation,
// while accounting updates after a successful write are best-effort.
package quota

import "context"

// Coordinator tracks per-user storage budgets.
type Coordinator interface {
	// CheckQuota reports whether the user has room for size additional
	// bytes. An error means the service could not be reached; callers
	// treat that as a pre-write dependency failure and abort.
	CheckQuota(ctx context.Context, userID string, size int64) (bool, error)

	// UpdateStorageUsed adjusts the user's accounted usage by delta
	// bytes (negative to release space). Called after the local commit;
	// failures are logged by the caller, never surfaced.
	UpdateStorageUsed(ctx context.Context, userID string, delta int64) error
}
